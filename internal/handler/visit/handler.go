package visit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/middleware"
	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/service/ledger"
	"github.com/clinicore/visit-api/internal/service/visit"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/httputil"
)

type Handler struct {
	visits *visit.Service
	ledger *ledger.Service
}

func NewHandler(visits *visit.Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{visits: visits, ledger: ledgerSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	visits := rg.Group("/visits")

	visits.POST("", auth.RequireRole(model.RolePatient), h.CreateVisit)
	visits.GET("", h.ListVisits)
	visits.GET("/:id", h.GetVisit)

	practitioner := auth.RequireRole(model.RolePractitioner)
	visits.POST("/:id/start", practitioner, h.StartVisit)
	visits.POST("/:id/complete", practitioner, h.CompleteVisit)
	visits.POST("/:id/cancel", practitioner, h.CancelVisit)
	visits.PATCH("/:id", practitioner, h.UpdateClinicalFields)

	visits.PATCH("/:id/payment", auth.RequireRole(model.RoleFinance), h.UpdatePaymentStatus)

	visits.POST("/:id/treatments", practitioner, h.AddTreatment)
	visits.PATCH("/:id/treatments/:treatmentId", practitioner, h.UpdateTreatment)
	visits.DELETE("/:id/treatments/:treatmentId", practitioner, h.RemoveTreatment)
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	// Patients book for themselves only.
	actor, _ := middleware.ParticipantFrom(c)
	if req.PatientRef != actor {
		httputil.RespondWithError(c, apperrors.Authorization("cannot create a visit for another patient"))
		return
	}

	created, err := h.visits.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid visit ID"))
		return
	}

	v, err := h.visits.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.authorizeRead(c, v); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, withDuration(v))
}

func (h *Handler) ListVisits(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// Patients and practitioners only see their own visits.
	actor, _ := middleware.ParticipantFrom(c)
	switch role, _ := middleware.RoleFrom(c); role {
	case model.RolePatient:
		filter.PatientRef = &actor
	case model.RolePractitioner:
		filter.PractitionerRef = &actor
	}

	visits, err := h.visits.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, visits)
}

func (h *Handler) StartVisit(c *gin.Context) {
	h.transition(c, h.visits.Start)
}

func (h *Handler) CompleteVisit(c *gin.Context) {
	h.transition(c, h.visits.Complete)
}

func (h *Handler) CancelVisit(c *gin.Context) {
	h.transition(c, h.visits.Cancel)
}

func (h *Handler) UpdateClinicalFields(c *gin.Context) {
	id, err := h.ownedVisitID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var patch model.ClinicalFieldsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	v, err := h.visits.UpdateClinicalFields(c.Request.Context(), id, &patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid visit ID"))
		return
	}

	var req model.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	v, err := h.visits.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) AddTreatment(c *gin.Context) {
	id, err := h.ownedVisitID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AddTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	v, err := h.ledger.AddTreatment(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, v)
}

func (h *Handler) UpdateTreatment(c *gin.Context) {
	id, err := h.ownedVisitID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	treatmentID, err := uuid.Parse(c.Param("treatmentId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid treatment ID"))
		return
	}

	var patch model.TreatmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	v, err := h.ledger.UpdateTreatment(c.Request.Context(), id, treatmentID, &patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) RemoveTreatment(c *gin.Context) {
	id, err := h.ownedVisitID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	treatmentID, err := uuid.Parse(c.Param("treatmentId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid treatment ID"))
		return
	}

	v, err := h.ledger.RemoveTreatment(c.Request.Context(), id, treatmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*model.Visit, error)) {
	id, err := h.ownedVisitID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	v, err := op(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, withDuration(v))
}

// ownedVisitID parses the visit id and checks the acting practitioner owns
// the visit.
func (h *Handler) ownedVisitID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid visit ID")
	}

	v, err := h.visits.Get(c.Request.Context(), id)
	if err != nil {
		return uuid.Nil, err
	}

	actor, _ := middleware.ParticipantFrom(c)
	if v.PractitionerRef != actor {
		return uuid.Nil, apperrors.Authorization("visit belongs to another practitioner")
	}
	return id, nil
}

func (h *Handler) authorizeRead(c *gin.Context, v *model.Visit) error {
	actor, _ := middleware.ParticipantFrom(c)
	role, _ := middleware.RoleFrom(c)

	switch role {
	case model.RoleFinance:
		return nil
	case model.RolePatient:
		if v.PatientRef == actor {
			return nil
		}
	case model.RolePractitioner:
		if v.PractitionerRef == actor {
			return nil
		}
	}
	return apperrors.Authorization("visit belongs to another participant")
}

// visitView decorates a visit with its duration projection.
type visitView struct {
	*model.Visit
	DurationMinutes *int `json:"durationMinutes,omitempty"`
}

func withDuration(v *model.Visit) visitView {
	return visitView{Visit: v, DurationMinutes: v.DurationMinutes()}
}

func parseFilter(c *gin.Context) (model.VisitFilter, error) {
	var filter model.VisitFilter

	if s := c.Query("status"); s != "" {
		status := model.VisitStatus(s)
		if !status.Valid() {
			return filter, apperrors.Validation("unknown status %q", s)
		}
		filter.Status = &status
	}
	if s := c.Query("paymentStatus"); s != "" {
		ps := model.PaymentStatus(s)
		if !ps.Valid() {
			return filter, apperrors.Validation("unknown payment status %q", s)
		}
		filter.PaymentStatus = &ps
	}
	if s := c.Query("practitionerRef"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, apperrors.Validation("invalid practitioner ID")
		}
		filter.PractitionerRef = &id
	}
	if s := c.Query("patientRef"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, apperrors.Validation("invalid patient ID")
		}
		filter.PatientRef = &id
	}
	if s := c.Query("startDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, apperrors.Validation("invalid start date, expected YYYY-MM-DD")
		}
		filter.ScheduledFrom = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, apperrors.Validation("invalid end date, expected YYYY-MM-DD")
		}
		// Inclusive end of day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.ScheduledTo = &end
	}
	return filter, nil
}
