package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmfranc/stripemirror/api/responses"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

const userRefHeader = "X-User-Ref"

// EntitlementChecker decides whether a host application user may reach gated
// routes.
type EntitlementChecker interface {
	UserHasActiveSubscription(ctx context.Context, userRef string) (bool, error)
}

// SubscriptionGate redirects users without an active subscription to the
// configured destination. Requests with no user context and paths on the
// exception list pass straight through.
func SubscriptionGate(cfg config.GateConfig, checker EntitlementChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if pathExcepted(cfg.ExceptionURLs, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			userRef := r.Header.Get(userRefHeader)
			if userRef == "" || checker == nil {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := checker.UserHasActiveSubscription(ctx, userRef)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !ok {
				if logg != nil {
					ctx = logg.WithField(ctx, "user_ref", userRef)
					logg.Info(ctx, "subscription gate redirect")
				}
				http.Redirect(w, r, cfg.RedirectURL, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// pathExcepted matches a request path against the exception list. An entry
// ending in "*" matches by prefix, anything else matches exactly.
func pathExcepted(exceptions []string, path string) bool {
	for _, pattern := range exceptions {
		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(pattern, "*")) {
				return true
			}
			continue
		}
		if pattern == path {
			return true
		}
	}
	return false
}
