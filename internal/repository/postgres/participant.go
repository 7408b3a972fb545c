package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
)

func (r *participantRepository) Create(ctx context.Context, p *model.Participant) error {
	query := `
		INSERT INTO participants (
			id, name, email, password_hash, role, specialization,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		p.PasswordHash,
		p.Role,
		p.Specialization,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *participantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	query := `
		SELECT id, name, email, password_hash, role, specialization,
			   is_active, created_at, updated_at
		FROM participants
		WHERE id = $1
	`
	var p model.Participant
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*model.Participant, error) {
	query := `
		SELECT id, name, email, password_hash, role, specialization,
			   is_active, created_at, updated_at
		FROM participants
		WHERE email = $1
	`
	var p model.Participant
	if err := r.db.GetContext(ctx, &p, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant by email: %w", err)
	}
	return &p, nil
}

func (r *participantRepository) Update(ctx context.Context, p *model.Participant) error {
	query := `
		UPDATE participants
		SET name = $1, specialization = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	p.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.Specialization,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *participantRepository) List(ctx context.Context) ([]*model.Participant, error) {
	query := `
		SELECT id, name, email, password_hash, role, specialization,
			   is_active, created_at, updated_at
		FROM participants
		ORDER BY name ASC
	`
	var participants []*model.Participant
	if err := r.db.SelectContext(ctx, &participants, query); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}
