package finance

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/middleware"
	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/service/finance"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/httputil"
)

type Handler struct {
	service *finance.Service
}

func NewHandler(service *finance.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	reports := rg.Group("/finance", auth.RequireRole(model.RoleFinance))
	reports.GET("/reports", h.Report)
	reports.GET("/dashboard", h.Dashboard)
}

func (h *Handler) Report(c *gin.Context) {
	query, err := parseReportQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), query)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}

func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dashboard)
}

func parseReportQuery(c *gin.Context) (*model.ReportQuery, error) {
	q := &model.ReportQuery{
		DoctorName:  c.Query("doctorName"),
		PatientName: c.Query("patientName"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
	}

	if s := c.Query("visitId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apperrors.Validation("invalid visit ID")
		}
		q.VisitID = &id
	}
	if s := c.Query("status"); s != "" {
		status := model.VisitStatus(s)
		if !status.Valid() {
			return nil, apperrors.Validation("unknown status %q", s)
		}
		q.Status = &status
	}
	if s := c.Query("paymentStatus"); s != "" {
		ps := model.PaymentStatus(s)
		if !ps.Valid() {
			return nil, apperrors.Validation("unknown payment status %q", s)
		}
		q.PaymentStatus = &ps
	}
	if s := c.Query("startDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, apperrors.Validation("invalid start date, expected YYYY-MM-DD")
		}
		q.StartDate = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, apperrors.Validation("invalid end date, expected YYYY-MM-DD")
		}
		// Inclusive end of day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		q.EndDate = &end
	}
	if s := c.Query("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			return nil, apperrors.Validation("invalid page")
		}
		q.Page = page
	}
	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			return nil, apperrors.Validation("invalid limit")
		}
		q.Limit = limit
	}
	return q, nil
}
