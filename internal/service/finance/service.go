package finance

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/metrics"
)

const (
	defaultPage  = 1
	defaultLimit = 20

	dashboardCacheKey = "dashboard"
	dashboardCacheTTL = 30 * time.Second

	topPractitionerCount = 10
)

// Service is the read-oriented aggregator over the visit collection. The
// report pipeline runs its stages in a fixed order: structural filters,
// participant-name join, name filters, count, sort, paginate, statistics.
// The order is part of the contract, since the name filters only exist after
// the join.
type Service struct {
	visits       repository.VisitRepository
	participants repository.ParticipantRepository
	cache        *gocache.Cache
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(
	visits repository.VisitRepository,
	participants repository.ParticipantRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		visits:       visits,
		participants: participants,
		cache:        gocache.New(dashboardCacheTTL, time.Minute),
		metrics:      m,
		logger:       logger,
	}
}

func (s *Service) Report(ctx context.Context, q *model.ReportQuery) (*model.Report, error) {
	start := time.Now()

	page, limit, err := normalizePagination(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	sortBy, descending := normalizeSort(q.SortBy, q.SortOrder)

	// Stage 1: structural filters, pushed down to the store.
	visits, err := s.visits.ListVisits(ctx, model.VisitFilter{
		ID:            q.VisitID,
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		ScheduledFrom: q.StartDate,
		ScheduledTo:   q.EndDate,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	// Stage 2: join participant display names. Names are needed both for
	// the name filters and for the output rows.
	names := s.resolveNames(ctx, visits)
	items := make([]model.ReportItem, 0, len(visits))
	for _, v := range visits {
		items = append(items, model.ReportItem{
			Visit:       *v,
			DoctorName:  names[v.PractitionerRef],
			PatientName: names[v.PatientRef],
		})
	}

	// Stage 3: case-insensitive name-substring filters, post-join.
	items = filterByName(items, q.DoctorName, q.PatientName)

	// Stage 4: total before pagination.
	total := len(items)

	// Stage 5: sort, ties broken by id ascending for determinism.
	sortItems(items, sortBy, descending)

	// Stage 7 runs over the filtered pre-pagination set.
	stats := computeStatistics(items)

	// Stage 6: paginate.
	items = paginate(items, page, limit)

	if s.metrics != nil {
		s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	return &model.Report{
		Items:      items,
		Total:      total,
		Page:       page,
		Pages:      pages,
		Statistics: stats,
	}, nil
}

func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = defaultPage
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if page < 1 {
		return 0, 0, apperrors.Validation("page must be at least 1")
	}
	if limit < 1 {
		return 0, 0, apperrors.Validation("limit must be at least 1")
	}
	return page, limit, nil
}

func normalizeSort(sortBy, sortOrder string) (string, bool) {
	switch sortBy {
	case model.SortByScheduledDate, model.SortByTotalAmount, model.SortByCreatedAt,
		model.SortByStatus, model.SortByPaymentStatus:
	default:
		sortBy = model.SortByScheduledDate
	}
	return sortBy, !strings.EqualFold(sortOrder, "asc")
}

func (s *Service) resolveNames(ctx context.Context, visits []*model.Visit) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string)
	for _, v := range visits {
		for _, ref := range []uuid.UUID{v.PatientRef, v.PractitionerRef} {
			if _, seen := names[ref]; seen {
				continue
			}
			p, err := s.participants.Get(ctx, ref)
			if err != nil {
				// A dangling reference must not sink the whole report;
				// the row simply joins to an empty name.
				s.logger.Warn().Err(err).Str("participant_id", ref.String()).Msg("unresolved participant in report")
				names[ref] = ""
				continue
			}
			names[ref] = p.Name
		}
	}
	return names
}

func filterByName(items []model.ReportItem, doctorName, patientName string) []model.ReportItem {
	if doctorName == "" && patientName == "" {
		return items
	}
	doctor := strings.ToLower(doctorName)
	patient := strings.ToLower(patientName)

	filtered := items[:0]
	for _, item := range items {
		if doctor != "" && !strings.Contains(strings.ToLower(item.DoctorName), doctor) {
			continue
		}
		if patient != "" && !strings.Contains(strings.ToLower(item.PatientName), patient) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func sortItems(items []model.ReportItem, sortBy string, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]

		var cmp int
		switch sortBy {
		case model.SortByTotalAmount:
			cmp = a.TotalAmount.Cmp(b.TotalAmount)
		case model.SortByCreatedAt:
			cmp = compareTime(a.CreatedAt, b.CreatedAt)
		case model.SortByStatus:
			cmp = strings.Compare(string(a.Status), string(b.Status))
		case model.SortByPaymentStatus:
			cmp = strings.Compare(string(a.PaymentStatus), string(b.PaymentStatus))
		default:
			cmp = compareTime(a.ScheduledDate, b.ScheduledDate)
		}

		if cmp == 0 {
			// Tiebreak stays id-ascending regardless of direction, so
			// repeated calls paginate identically.
			return a.ID.String() < b.ID.String()
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func paginate(items []model.ReportItem, page, limit int) []model.ReportItem {
	// Arbitrarily large page or limit values must yield an empty page, not
	// wrap around into a negative offset.
	offset := (page - 1) * limit
	if offset < 0 || offset/limit != page-1 || offset >= len(items) {
		return []model.ReportItem{}
	}
	end := offset + limit
	if end < offset || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func computeStatistics(items []model.ReportItem) model.ReportStatistics {
	stats := model.ReportStatistics{}
	revenue := decimal.Zero

	for _, item := range items {
		revenue = revenue.Add(item.TotalAmount)
		if item.Status == model.VisitStatusCompleted {
			stats.CompletedVisits++
		}
		switch item.PaymentStatus {
		case model.PaymentStatusPending:
			stats.PendingPayments++
		case model.PaymentStatusPartial:
			stats.PartialPayments++
		case model.PaymentStatusPaid:
			stats.PaidVisits++
		}
	}

	stats.TotalRevenue = revenue.StringFixed(2)
	return stats
}

// Dashboard aggregates the full, unfiltered collection. Results are cached
// briefly since every call scans all visits.
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	if cached, ok := s.cache.Get(dashboardCacheKey); ok {
		if s.metrics != nil {
			s.metrics.DashboardCacheHits.Inc()
		}
		return cached.(*model.Dashboard), nil
	}

	start := time.Now()
	visits, err := s.visits.ListVisits(ctx, model.VisitFilter{})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	dashboard := s.buildDashboard(ctx, visits, time.Now())

	if s.metrics != nil {
		s.metrics.DashboardDuration.Observe(time.Since(start).Seconds())
	}
	s.cache.Set(dashboardCacheKey, dashboard, gocache.DefaultExpiration)
	return dashboard, nil
}

func (s *Service) buildDashboard(ctx context.Context, visits []*model.Visit, now time.Time) *model.Dashboard {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	d := &model.Dashboard{
		RevenueByPayment:  make(map[model.PaymentStatus]string),
		RevenueByCategory: make(map[model.TreatmentCategory]string),
	}

	var (
		totalRevenue = decimal.Zero
		paidRevenue  = decimal.Zero
		todayRevenue = decimal.Zero
		monthRevenue = decimal.Zero
		byPayment    = make(map[model.PaymentStatus]decimal.Decimal)
		byCategory   = make(map[model.TreatmentCategory]decimal.Decimal)
		byDoctor     = make(map[uuid.UUID]*practitionerBucket)
	)

	for _, v := range visits {
		d.Visits.Total++
		switch v.Status {
		case model.VisitStatusScheduled:
			d.Visits.Scheduled++
		case model.VisitStatusInProgress:
			d.Visits.InProgress++
		case model.VisitStatusCompleted:
			d.Visits.Completed++
		case model.VisitStatusCancelled:
			d.Visits.Cancelled++
		}

		if !v.CreatedAt.Before(midnight) {
			d.Today.Visits++
			todayRevenue = todayRevenue.Add(v.TotalAmount)
		}
		if !v.CreatedAt.Before(monthStart) {
			d.ThisMonth.Visits++
			monthRevenue = monthRevenue.Add(v.TotalAmount)
		}

		if v.Status != model.VisitStatusCompleted {
			continue
		}

		// Revenue figures count completed visits only.
		totalRevenue = totalRevenue.Add(v.TotalAmount)
		if v.PaymentStatus == model.PaymentStatusPaid {
			paidRevenue = paidRevenue.Add(v.TotalAmount)
		}
		byPayment[v.PaymentStatus] = byPayment[v.PaymentStatus].Add(v.TotalAmount)

		for _, t := range v.Treatments {
			byCategory[t.Category] = byCategory[t.Category].Add(t.TotalPrice)
		}

		bucket, ok := byDoctor[v.PractitionerRef]
		if !ok {
			bucket = &practitionerBucket{}
			byDoctor[v.PractitionerRef] = bucket
		}
		bucket.visits++
		bucket.revenue = bucket.revenue.Add(v.TotalAmount)
	}

	d.Revenue = model.RevenueSummary{
		Total:          totalRevenue.StringFixed(2),
		Paid:           paidRevenue.StringFixed(2),
		Pending:        totalRevenue.Sub(paidRevenue).StringFixed(2),
		CollectionRate: collectionRate(paidRevenue, totalRevenue),
	}
	d.Today.Revenue = todayRevenue.StringFixed(2)
	d.ThisMonth.Revenue = monthRevenue.StringFixed(2)

	for status, amount := range byPayment {
		d.RevenueByPayment[status] = amount.StringFixed(2)
	}
	for category, amount := range byCategory {
		d.RevenueByCategory[category] = amount.StringFixed(2)
	}
	d.TopPractitioners = s.topPractitioners(ctx, byDoctor)

	return d
}

type practitionerBucket struct {
	visits  int
	revenue decimal.Decimal
}

func (s *Service) topPractitioners(ctx context.Context, buckets map[uuid.UUID]*practitionerBucket) []model.PractitionerRevenue {
	top := make([]model.PractitionerRevenue, 0, len(buckets))
	ordered := make([]uuid.UUID, 0, len(buckets))
	for id := range buckets {
		ordered = append(ordered, id)
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := buckets[ordered[i]], buckets[ordered[j]]
		if cmp := a.revenue.Cmp(b.revenue); cmp != 0 {
			return cmp > 0
		}
		return ordered[i].String() < ordered[j].String()
	})

	if len(ordered) > topPractitionerCount {
		ordered = ordered[:topPractitionerCount]
	}

	for _, id := range ordered {
		name := ""
		if p, err := s.participants.Get(ctx, id); err == nil {
			name = p.Name
		}
		top = append(top, model.PractitionerRevenue{
			PractitionerRef: id,
			Name:            name,
			Visits:          buckets[id].visits,
			Revenue:         buckets[id].revenue.StringFixed(2),
		})
	}
	return top
}

func collectionRate(paid, total decimal.Decimal) string {
	if total.IsZero() {
		return "0.00%"
	}
	rate := paid.Div(total).Mul(decimal.NewFromInt(100))
	return rate.StringFixed(2) + "%"
}
