package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TreatmentCategory string

const (
	CategoryConsultation TreatmentCategory = "consultation"
	CategoryMedication   TreatmentCategory = "medication"
	CategoryProcedure    TreatmentCategory = "procedure"
	CategoryLabTest      TreatmentCategory = "lab_test"
	CategoryImaging      TreatmentCategory = "imaging"
	CategoryOther        TreatmentCategory = "other"
)

func (c TreatmentCategory) Valid() bool {
	switch c {
	case CategoryConsultation, CategoryMedication, CategoryProcedure,
		CategoryLabTest, CategoryImaging, CategoryOther:
		return true
	}
	return false
}

// Treatment is a billable line item embedded in a visit. It has no lifecycle
// of its own; its id is only meaningful within the parent visit.
type Treatment struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unitPrice"`
	TotalPrice  decimal.Decimal   `json:"totalPrice"`
	Category    TreatmentCategory `json:"category"`
}

// ComputeTotal derives TotalPrice from UnitPrice and Quantity. Must run after
// every price or quantity change, before the treatment is persisted.
func (t *Treatment) ComputeTotal() {
	t.TotalPrice = t.UnitPrice.Mul(decimal.NewFromInt(int64(t.Quantity)))
}

type AddTreatmentRequest struct {
	Name        string            `json:"name" binding:"required,max=200"`
	Description string            `json:"description" binding:"max=1000"`
	Quantity    *int              `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unitPrice" binding:"gte=0"`
	Category    TreatmentCategory `json:"category"`
}

// TreatmentPatch applies partial updates; nil fields are left unchanged.
type TreatmentPatch struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Quantity    *int               `json:"quantity"`
	UnitPrice   *decimal.Decimal   `json:"unitPrice"`
	Category    *TreatmentCategory `json:"category"`
}
