package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

type fakeChecker struct {
	active bool
	err    error
	calls  []string
}

func (c *fakeChecker) UserHasActiveSubscription(_ context.Context, userRef string) (bool, error) {
	c.calls = append(c.calls, userRef)
	return c.active, c.err
}

func gateRequest(t *testing.T, cfg config.GateConfig, checker EntitlementChecker, path, userRef string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userRef != "" {
		req.Header.Set("X-User-Ref", userRef)
	}
	rec := httptest.NewRecorder()

	SubscriptionGate(cfg, checker, logg)(next).ServeHTTP(rec, req)
	return rec, reached
}

func TestSubscriptionGateRedirectsInactiveUser(t *testing.T) {
	checker := &fakeChecker{active: false}
	cfg := config.GateConfig{RedirectURL: "/subscribe"}

	rec, reached := gateRequest(t, cfg, checker, "/reports/charges", "user-42")

	require.False(t, reached)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/subscribe", rec.Header().Get("Location"))
	require.Equal(t, []string{"user-42"}, checker.calls)
}

func TestSubscriptionGateActiveUserPasses(t *testing.T) {
	checker := &fakeChecker{active: true}

	rec, reached := gateRequest(t, config.GateConfig{RedirectURL: "/subscribe"}, checker, "/reports/charges", "user-42")

	require.True(t, reached)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscriptionGateAnonymousPasses(t *testing.T) {
	checker := &fakeChecker{active: false}

	_, reached := gateRequest(t, config.GateConfig{RedirectURL: "/subscribe"}, checker, "/reports/charges", "")

	require.True(t, reached)
	require.Empty(t, checker.calls)
}

func TestSubscriptionGateExceptionURLs(t *testing.T) {
	checker := &fakeChecker{active: false}
	cfg := config.GateConfig{
		ExceptionURLs: []string{"/health", "/webhooks/*"},
		RedirectURL:   "/subscribe",
	}

	for _, path := range []string{"/health", "/webhooks/stripe"} {
		_, reached := gateRequest(t, cfg, checker, path, "user-42")
		require.True(t, reached, "path %s should bypass the gate", path)
	}
	require.Empty(t, checker.calls)

	_, reached := gateRequest(t, cfg, checker, "/healthz", "user-42")
	require.False(t, reached, "exact entries must not match by prefix")
}

func TestSubscriptionGateCheckerError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("db down")}

	rec, reached := gateRequest(t, config.GateConfig{RedirectURL: "/subscribe"}, checker, "/reports/charges", "user-42")

	require.False(t, reached)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
