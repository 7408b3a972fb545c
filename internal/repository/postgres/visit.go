package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
)

// activeVisitConstraint is the partial unique index that makes the
// one-active-visit-per-practitioner rule atomic: the insert itself fails
// instead of a racy check-then-act. See migrations/0001_init.up.sql.
const activeVisitConstraint = "visits_one_active_per_practitioner"

// visitRow mirrors the visits table; treatments live in a JSONB column so the
// whole aggregate is read and written as one document.
type visitRow struct {
	ID             uuid.UUID       `db:"id"`
	PatientID      uuid.UUID       `db:"patient_id"`
	PractitionerID uuid.UUID       `db:"practitioner_id"`
	Status         string          `db:"status"`
	ScheduledDate  time.Time       `db:"scheduled_date"`
	StartTime      *time.Time      `db:"start_time"`
	EndTime        *time.Time      `db:"end_time"`
	ChiefComplaint string          `db:"chief_complaint"`
	Diagnosis      string          `db:"diagnosis"`
	Notes          string          `db:"notes"`
	Treatments     []byte          `db:"treatments"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaymentStatus  string          `db:"payment_status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r visitRow) toModel() (*model.Visit, error) {
	var treatments []model.Treatment
	if len(r.Treatments) > 0 {
		if err := json.Unmarshal(r.Treatments, &treatments); err != nil {
			return nil, fmt.Errorf("failed to decode treatments: %w", err)
		}
	}
	return &model.Visit{
		ID:              r.ID,
		PatientRef:      r.PatientID,
		PractitionerRef: r.PractitionerID,
		Status:          model.VisitStatus(r.Status),
		ScheduledDate:   r.ScheduledDate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		ChiefComplaint:  r.ChiefComplaint,
		Diagnosis:       r.Diagnosis,
		Notes:           r.Notes,
		Treatments:      treatments,
		TotalAmount:     r.TotalAmount,
		PaymentStatus:   model.PaymentStatus(r.PaymentStatus),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func encodeTreatments(ts []model.Treatment) ([]byte, error) {
	if ts == nil {
		ts = []model.Treatment{}
	}
	payload, err := json.Marshal(ts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode treatments: %w", err)
	}
	return payload, nil
}

const visitColumns = `id, patient_id, practitioner_id, status, scheduled_date,
	start_time, end_time, chief_complaint, diagnosis, notes, treatments,
	total_amount, payment_status, created_at, updated_at`

func (r *visitRepository) CreateVisit(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			id, patient_id, practitioner_id, status, scheduled_date,
			chief_complaint, diagnosis, notes, treatments,
			total_amount, payment_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	treatments, err := encodeTreatments(visit.Treatments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		visit.ID,
		visit.PatientRef,
		visit.PractitionerRef,
		visit.Status,
		visit.ScheduledDate,
		visit.ChiefComplaint,
		visit.Diagnosis,
		visit.Notes,
		treatments,
		visit.TotalAmount,
		visit.PaymentStatus,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == activeVisitConstraint {
			return repository.ErrPractitionerBusy
		}
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`

	var row visitRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return row.toModel()
}

func (r *visitRepository) ListVisits(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ID != nil {
		add("id = $%d", *filter.ID)
	}
	if filter.PatientRef != nil {
		add("patient_id = $%d", *filter.PatientRef)
	}
	if filter.PractitionerRef != nil {
		add("practitioner_id = $%d", *filter.PractitionerRef)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		add("payment_status = $%d", *filter.PaymentStatus)
	}
	if filter.ScheduledFrom != nil {
		add("scheduled_date >= $%d", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		add("scheduled_date <= $%d", *filter.ScheduledTo)
	}

	query := `SELECT ` + visitColumns + ` FROM visits`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scheduled_date DESC, id ASC"

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	visits := make([]*model.Visit, 0, len(rows))
	for _, row := range rows {
		visit, err := row.toModel()
		if err != nil {
			return nil, err
		}
		visits = append(visits, visit)
	}
	return visits, nil
}

// UpdateVisit locks the row, applies mutate and writes the whole document
// back inside one transaction, so concurrent ledger edits cannot lose
// updates and no partially mutated visit is ever visible.
func (r *visitRepository) UpdateVisit(ctx context.Context, id uuid.UUID, mutate func(*model.Visit) error) (*model.Visit, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1 FOR UPDATE`

	var row visitRow
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock visit: %w", err)
	}

	visit, err := row.toModel()
	if err != nil {
		return nil, err
	}

	if err := mutate(visit); err != nil {
		return nil, err
	}
	visit.UpdatedAt = time.Now()

	treatments, err := encodeTreatments(visit.Treatments)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE visits SET
			status = $1, start_time = $2, end_time = $3,
			chief_complaint = $4, diagnosis = $5, notes = $6,
			treatments = $7, total_amount = $8, payment_status = $9,
			updated_at = $10
		WHERE id = $11
	`
	if _, err := tx.ExecContext(ctx, update,
		visit.Status,
		visit.StartTime,
		visit.EndTime,
		visit.ChiefComplaint,
		visit.Diagnosis,
		visit.Notes,
		treatments,
		visit.TotalAmount,
		visit.PaymentStatus,
		visit.UpdatedAt,
		visit.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to update visit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit visit update: %w", err)
	}
	return visit, nil
}
