package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VisitStatus string

const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusScheduled, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status or ledger mutation is permitted.
func (s VisitStatus) Terminal() bool {
	return s == VisitStatusCompleted || s == VisitStatusCancelled
}

// Active reports whether the visit counts against the one-active-visit-per-
// practitioner constraint.
func (s VisitStatus) Active() bool {
	return s == VisitStatusScheduled || s == VisitStatusInProgress
}

// CanTransitionTo encodes the legal transition table:
// scheduled -> in_progress | cancelled; in_progress -> completed | cancelled;
// scheduled -> completed is also allowed (a visit may be closed without being
// started). completed and cancelled are terminal.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	switch s {
	case VisitStatusScheduled:
		return next == VisitStatusInProgress || next == VisitStatusCompleted || next == VisitStatusCancelled
	case VisitStatusInProgress:
		return next == VisitStatusCompleted || next == VisitStatusCancelled
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// Visit is the root aggregate: a clinical encounter between a patient and a
// practitioner, carrying its treatment ledger. PatientRef and PractitionerRef
// are immutable after creation.
type Visit struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	PatientRef      uuid.UUID       `json:"patientRef" db:"patient_id"`
	PractitionerRef uuid.UUID       `json:"practitionerRef" db:"practitioner_id"`
	Status          VisitStatus     `json:"status" db:"status"`
	ScheduledDate   time.Time       `json:"scheduledDate" db:"scheduled_date"`
	StartTime       *time.Time      `json:"startTime" db:"start_time"`
	EndTime         *time.Time      `json:"endTime" db:"end_time"`
	ChiefComplaint  string          `json:"chiefComplaint,omitempty" db:"chief_complaint"`
	Diagnosis       string          `json:"diagnosis,omitempty" db:"diagnosis"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	Treatments      []Treatment     `json:"treatments"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// RecomputeTotal restores the invariant totalAmount == sum(treatments.totalPrice).
// Must run after every ledger mutation, before the visit is persisted.
func (v *Visit) RecomputeTotal() {
	total := decimal.Zero
	for _, t := range v.Treatments {
		total = total.Add(t.TotalPrice)
	}
	v.TotalAmount = total
}

// Treatment returns the embedded treatment with the given id, or nil.
func (v *Visit) Treatment(id uuid.UUID) *Treatment {
	for i := range v.Treatments {
		if v.Treatments[i].ID == id {
			return &v.Treatments[i]
		}
	}
	return nil
}

// DurationMinutes is a read-only projection: whole minutes between start and
// end when both are set.
func (v *Visit) DurationMinutes() *int {
	if v.StartTime == nil || v.EndTime == nil {
		return nil
	}
	mins := int(v.EndTime.Sub(*v.StartTime).Round(time.Minute) / time.Minute)
	return &mins
}

// Clone returns a deep copy, detached from the original's treatment slice.
func (v *Visit) Clone() *Visit {
	clone := *v
	if v.StartTime != nil {
		t := *v.StartTime
		clone.StartTime = &t
	}
	if v.EndTime != nil {
		t := *v.EndTime
		clone.EndTime = &t
	}
	clone.Treatments = make([]Treatment, len(v.Treatments))
	copy(clone.Treatments, v.Treatments)
	return &clone
}

type CreateVisitRequest struct {
	PatientRef      uuid.UUID `json:"patientRef" binding:"required"`
	PractitionerRef uuid.UUID `json:"practitionerRef" binding:"required"`
	ScheduledDate   time.Time `json:"scheduledDate" binding:"required"`
	ChiefComplaint  string    `json:"chiefComplaint"`
}

// ClinicalFieldsPatch updates free-text clinical fields. Nil means leave as
// is; an explicit empty string clears the field.
type ClinicalFieldsPatch struct {
	ChiefComplaint *string `json:"chiefComplaint"`
	Diagnosis      *string `json:"diagnosis"`
	Notes          *string `json:"notes"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus PaymentStatus `json:"paymentStatus" binding:"required,oneof=pending partial paid"`
}

// VisitFilter holds the structural filters a store can apply directly against
// visit fields, before any participant join.
type VisitFilter struct {
	ID              *uuid.UUID
	PatientRef      *uuid.UUID
	PractitionerRef *uuid.UUID
	Status          *VisitStatus
	PaymentStatus   *PaymentStatus
	ScheduledFrom   *time.Time
	ScheduledTo     *time.Time
}
