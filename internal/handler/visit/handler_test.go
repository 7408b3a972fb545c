package visit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
)

func listContext(t *testing.T, query string) *gin.Context {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/visits?"+query, nil)
	return c
}

func TestParseFilter(t *testing.T) {
	practitioner := uuid.New()
	c := listContext(t, "status=completed&paymentStatus=paid&practitionerRef="+practitioner.String()+
		"&startDate=2026-05-01&endDate=2026-05-02")

	filter, err := parseFilter(c)
	require.NoError(t, err)

	require.NotNil(t, filter.Status)
	assert.Equal(t, model.VisitStatusCompleted, *filter.Status)
	require.NotNil(t, filter.PaymentStatus)
	assert.Equal(t, model.PaymentStatusPaid, *filter.PaymentStatus)
	require.NotNil(t, filter.PractitionerRef)
	assert.Equal(t, practitioner, *filter.PractitionerRef)

	require.NotNil(t, filter.ScheduledFrom)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *filter.ScheduledFrom)

	// End date is inclusive: the bound covers the whole of May 2nd.
	require.NotNil(t, filter.ScheduledTo)
	assert.True(t, filter.ScheduledTo.After(time.Date(2026, 5, 2, 23, 59, 59, 0, time.UTC)))
	assert.True(t, filter.ScheduledTo.Before(time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)))
}

func TestParseFilterEmpty(t *testing.T) {
	filter, err := parseFilter(listContext(t, ""))
	require.NoError(t, err)
	assert.Equal(t, model.VisitFilter{}, filter)
}

func TestParseFilterRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "status=archived"},
		{"unknown payment status", "paymentStatus=settled"},
		{"bad practitioner id", "practitionerRef=not-a-uuid"},
		{"bad patient id", "patientRef=not-a-uuid"},
		{"bad start date", "startDate=01-05-2026"},
		{"bad end date", "endDate=yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilter(listContext(t, tt.query))
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}
