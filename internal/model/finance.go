package model

import (
	"time"

	"github.com/google/uuid"
)

// Report sort keys accepted by the finance aggregator.
const (
	SortByScheduledDate = "scheduledDate"
	SortByTotalAmount   = "totalAmount"
	SortByCreatedAt     = "createdAt"
	SortByStatus        = "status"
	SortByPaymentStatus = "paymentStatus"
)

// ReportQuery holds filter, sort and pagination parameters for the visit
// report pipeline. Zero page/limit take the defaults (1, 20).
type ReportQuery struct {
	VisitID       *uuid.UUID     `form:"visitId"`
	DoctorName    string         `form:"doctorName"`
	PatientName   string         `form:"patientName"`
	Status        *VisitStatus   `form:"status"`
	PaymentStatus *PaymentStatus `form:"paymentStatus"`
	StartDate     *time.Time     `form:"startDate" time_format:"2006-01-02"`
	EndDate       *time.Time     `form:"endDate" time_format:"2006-01-02"`
	Page          int            `form:"page"`
	Limit         int            `form:"limit"`
	SortBy        string         `form:"sortBy"`
	SortOrder     string         `form:"sortOrder"`
}

// ReportItem is a visit joined with the display names of its participants.
type ReportItem struct {
	Visit
	DoctorName  string `json:"doctorName"`
	PatientName string `json:"patientName"`
}

// ReportStatistics summarizes the filtered set before pagination. Currency is
// formatted with two decimal places; the underlying sums are exact.
type ReportStatistics struct {
	TotalRevenue    string `json:"totalRevenue"`
	CompletedVisits int    `json:"completedVisits"`
	PendingPayments int    `json:"pendingPayments"`
	PartialPayments int    `json:"partialPayments"`
	PaidVisits      int    `json:"paidVisits"`
}

type Report struct {
	Items      []ReportItem     `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Pages      int              `json:"pages"`
	Statistics ReportStatistics `json:"statistics"`
}

// Dashboard aggregates the full visit collection for the finance overview.
type Dashboard struct {
	Visits           VisitCounts            `json:"visits"`
	Revenue          RevenueSummary         `json:"revenue"`
	Today            PeriodStats            `json:"today"`
	ThisMonth        PeriodStats            `json:"thisMonth"`
	TopPractitioners []PractitionerRevenue  `json:"topPractitioners"`
	RevenueByPayment map[PaymentStatus]string `json:"revenueByPaymentStatus"`
	RevenueByCategory map[TreatmentCategory]string `json:"revenueByCategory"`
}

type VisitCounts struct {
	Total      int `json:"total"`
	Scheduled  int `json:"scheduled"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// RevenueSummary covers completed visits only.
type RevenueSummary struct {
	Total          string `json:"totalRevenue"`
	Paid           string `json:"paidAmount"`
	Pending        string `json:"pendingAmount"`
	CollectionRate string `json:"collectionRate"`
}

type PeriodStats struct {
	Visits  int    `json:"visits"`
	Revenue string `json:"revenue"`
}

type PractitionerRevenue struct {
	PractitionerRef uuid.UUID `json:"practitionerRef"`
	Name            string    `json:"name"`
	Visits          int       `json:"visits"`
	Revenue         string    `json:"revenue"`
}
