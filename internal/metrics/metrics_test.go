package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
	"github.com/rpggio/rolecall/internal/repository/memory"
	"github.com/rpggio/rolecall/internal/txn"
	"github.com/stretchr/testify/require"
)

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("accept", txn.OutcomeConflict)
	m.ObserveAttempt("accept", txn.OutcomeCommitted)
	m.ObserveAttempt("accept", txn.OutcomeCommitted)

	require.Equal(t, 2.0, testutil.ToFloat64(m.txnAttempts.WithLabelValues("accept", txn.OutcomeCommitted)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.txnAttempts.WithLabelValues("accept", txn.OutcomeConflict)))
}

func TestCoordinatorReportsAttempts(t *testing.T) {
	m := New()
	c := txn.New(memory.New(), txn.Policy{MaxAttempts: 2}, nil,
		txn.WithObserver(m),
		txn.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)

	require.NoError(t, c.Run(context.Background(), "noop", func(context.Context, repository.Tx) error { return nil }))
	require.Equal(t, 1.0, testutil.ToFloat64(m.txnAttempts.WithLabelValues("noop", txn.OutcomeCommitted)))
}

func TestDispatchCountsEvents(t *testing.T) {
	m := New()
	evt := event.New(event.TypeRoleFilled, "c1", "r1", "owner", time.Now())
	require.NoError(t, m.Dispatch(context.Background(), evt))
	require.NoError(t, event.Fanout{m}.Dispatch(context.Background(), evt))

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(string(event.TypeRoleFilled))))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("op", txn.OutcomeCommitted)
	m.ObserveToolCall("get_role", "ok")
	require.NoError(t, m.Dispatch(context.Background(), event.Event{}))
	require.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveToolCall("submit_application", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `rolecall_tools_calls_total{method="submit_application",result="ok"} 1`))
}
