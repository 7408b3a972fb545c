package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestVisitStatusTransitionTable(t *testing.T) {
	all := []VisitStatus{VisitStatusScheduled, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled}

	legal := map[VisitStatus][]VisitStatus{
		VisitStatusScheduled:  {VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled},
		VisitStatusInProgress: {VisitStatusCompleted, VisitStatusCancelled},
		VisitStatusCompleted:  {},
		VisitStatusCancelled:  {},
	}

	for from, allowed := range legal {
		allowedSet := make(map[VisitStatus]bool)
		for _, to := range allowed {
			allowedSet[to] = true
		}
		for _, to := range all {
			assert.Equal(t, allowedSet[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestVisitStatusTerminal(t *testing.T) {
	assert.False(t, VisitStatusScheduled.Terminal())
	assert.False(t, VisitStatusInProgress.Terminal())
	assert.True(t, VisitStatusCompleted.Terminal())
	assert.True(t, VisitStatusCancelled.Terminal())
}

func TestTreatmentComputeTotal(t *testing.T) {
	treatment := Treatment{
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("19.99"),
	}
	treatment.ComputeTotal()

	assert.True(t, treatment.TotalPrice.Equal(decimal.RequireFromString("59.97")),
		"got %s", treatment.TotalPrice)
}

func TestVisitRecomputeTotal(t *testing.T) {
	visit := Visit{
		Treatments: []Treatment{
			{TotalPrice: decimal.RequireFromString("100.00")},
			{TotalPrice: decimal.RequireFromString("25.50")},
		},
	}
	visit.RecomputeTotal()
	assert.True(t, visit.TotalAmount.Equal(decimal.RequireFromString("125.50")))

	visit.Treatments = nil
	visit.RecomputeTotal()
	assert.True(t, visit.TotalAmount.IsZero())
}

func TestVisitDurationMinutes(t *testing.T) {
	visit := Visit{}
	assert.Nil(t, visit.DurationMinutes())

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(45*time.Minute + 20*time.Second)
	visit.StartTime = &start
	visit.EndTime = &end

	mins := visit.DurationMinutes()
	if assert.NotNil(t, mins) {
		assert.Equal(t, 45, *mins)
	}
}

func TestVisitClone(t *testing.T) {
	start := time.Now()
	visit := &Visit{
		ID:         uuid.New(),
		StartTime:  &start,
		Treatments: []Treatment{{ID: uuid.New(), Name: "exam"}},
	}

	clone := visit.Clone()
	clone.Treatments[0].Name = "changed"
	*clone.StartTime = start.Add(time.Hour)

	assert.Equal(t, "exam", visit.Treatments[0].Name)
	assert.Equal(t, start, *visit.StartTime)
}
