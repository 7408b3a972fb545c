package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/metrics"
)

// Service owns the treatment ledger of a visit. Every mutation runs inside
// the store's atomic per-visit read-modify-write and recomputes both the
// line total and the visit total before anything is persisted, so the
// invariants totalPrice == unitPrice * quantity and
// totalAmount == sum(totalPrice) hold after every call.
type Service struct {
	repo    repository.VisitRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(repo repository.VisitRepository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
	}
}

func (s *Service) AddTreatment(ctx context.Context, visitID uuid.UUID, req *model.AddTreatmentRequest) (*model.Visit, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("treatment name is required")
	}
	if req.UnitPrice.IsNegative() {
		return nil, apperrors.Validation("unit price cannot be negative")
	}

	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, apperrors.Validation("quantity must be at least 1")
		}
		quantity = *req.Quantity
	}

	category := req.Category
	if category == "" {
		category = model.CategoryOther
	}
	if !category.Valid() {
		return nil, apperrors.Validation("unknown treatment category %q", category)
	}

	treatment := model.Treatment{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Quantity:    quantity,
		UnitPrice:   req.UnitPrice,
		Category:    category,
	}
	treatment.ComputeTotal()

	visit, err := s.mutate(ctx, visitID, "add", func(v *model.Visit) error {
		v.Treatments = append(v.Treatments, treatment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("visit_id", visitID.String()).
		Str("treatment_id", treatment.ID.String()).
		Str("total_price", treatment.TotalPrice.String()).
		Msg("treatment added")

	return visit, nil
}

func (s *Service) UpdateTreatment(ctx context.Context, visitID, treatmentID uuid.UUID, patch *model.TreatmentPatch) (*model.Visit, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperrors.Validation("treatment name cannot be empty")
	}
	if patch.UnitPrice != nil && patch.UnitPrice.IsNegative() {
		return nil, apperrors.Validation("unit price cannot be negative")
	}
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, apperrors.Validation("unknown treatment category %q", *patch.Category)
	}

	return s.mutate(ctx, visitID, "update", func(v *model.Visit) error {
		t := v.Treatment(treatmentID)
		if t == nil {
			return apperrors.NotFound("treatment")
		}

		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Quantity != nil {
			t.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			t.UnitPrice = *patch.UnitPrice
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		t.ComputeTotal()
		return nil
	})
}

// RemoveTreatment pulls the matching line item if present. A missing id is
// not an error; the ledger simply stays as it is.
func (s *Service) RemoveTreatment(ctx context.Context, visitID, treatmentID uuid.UUID) (*model.Visit, error) {
	return s.mutate(ctx, visitID, "remove", func(v *model.Visit) error {
		for i := range v.Treatments {
			if v.Treatments[i].ID == treatmentID {
				v.Treatments = append(v.Treatments[:i], v.Treatments[i+1:]...)
				break
			}
		}
		return nil
	})
}

// RecomputeTotal re-derives the visit total from its line items. Every
// mutation already does this; the operation exists for callers that need to
// force a recomputation after bulk edits.
func (s *Service) RecomputeTotal(ctx context.Context, visitID uuid.UUID) (*model.Visit, error) {
	return s.mutate(ctx, visitID, "recompute", func(*model.Visit) error { return nil })
}

func (s *Service) mutate(ctx context.Context, visitID uuid.UUID, op string, apply func(*model.Visit) error) (*model.Visit, error) {
	visit, err := s.repo.UpdateVisit(ctx, visitID, func(v *model.Visit) error {
		if v.Status.Terminal() {
			return apperrors.InvalidTransition("visit is %s, its ledger can no longer change", v.Status)
		}
		if err := apply(v); err != nil {
			return err
		}
		v.RecomputeTotal()
		if v.TotalAmount.LessThan(decimal.Zero) {
			return apperrors.Validation("visit total cannot be negative")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.LedgerMutations.WithLabelValues(op).Inc()
	}
	return visit, nil
}
