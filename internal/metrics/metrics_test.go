package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/librarydesk/circulation/internal/policy"
	"github.com/librarydesk/circulation/internal/repo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type staticStats struct {
	stats *repo.DashboardStats
	err   error
}

func (s staticStats) DashboardStats(context.Context, time.Time) (*repo.DashboardStats, error) {
	return s.stats, s.err
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{&repo.PolicyViolationError{Reason: policy.ReasonRenewalLimit}, OutcomeRefused},
		{repo.ErrRecordNotFound, OutcomeNotFound},
		{repo.ErrAlreadyReturned, OutcomeNotFound},
		{repo.ErrPermissionDenied, OutcomeDenied},
		{fmt.Errorf("approve: %w", repo.ErrConflict), OutcomeConflict},
		{errors.New("disk full"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestObserveLedgerOp(t *testing.T) {
	m := New()
	m.ObserveLedgerOp("renew", nil)
	m.ObserveLedgerOp("renew", nil)
	m.ObserveLedgerOp("renew", &repo.PolicyViolationError{Reason: policy.ReasonRenewalLimit})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("renew", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("renew", OutcomeRefused)))
}

func TestRefreshSetsGauges(t *testing.T) {
	m := New()
	src := staticStats{stats: &repo.DashboardStats{TotalCopies: 24, PendingRequests: 2, CurrentlyBorrowed: 5, Overdue: 1, Returned: 9}}

	require.NoError(t, m.Refresh(context.Background(), src, time.Now()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Loans.WithLabelValues("pending")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Loans.WithLabelValues("borrowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loans.WithLabelValues("overdue")))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.CatalogCopies))

	err := m.Refresh(context.Background(), staticStats{err: errors.New("db down")}, time.Now())
	assert.Error(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Loans.WithLabelValues("pending")))
}

func TestUnaryServerInterceptorObservesLatency(t *testing.T) {
	m := New()
	interceptor := m.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/library.circulation.v1.CirculationService/RenewLoan"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.FailedPrecondition, "renewal_limit_reached")
	})
	assert.Error(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RPCDuration, "circulation_grpc_request_duration_seconds"))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObservePublish("loan.returned", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `circulation_events_published_total{event_type="loan.returned",outcome="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
