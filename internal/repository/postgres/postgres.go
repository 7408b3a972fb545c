package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/visit-api/internal/repository"
)

type visitRepository struct {
	db *sqlx.DB
}

type participantRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func NewParticipantRepository(db *sqlx.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}
