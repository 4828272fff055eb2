package access

import (
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Middleware wires permission gating for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// WithIdentity extracts the identity headers supplied by the upstream
// session layer and stores them in the request context. Requests without a
// usable identity are rejected: every route behind this middleware is
// tenant-scoped.
func (m Middleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.IdentityFromRequest(r)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Info("request without identity", slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// Require gates a route on a single (module, action) grant for the
// caller's resolved capability set. Denials answer 403.
func (m Middleware) Require(module policy.ModuleID, action policy.ActionID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			guard := m.Service.GuardFor(r.Context(), id.TenantID, id.Role)
			if !guard.Dispatch(module, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates a route on the elevated role tier.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		guard := m.Service.GuardFor(r.Context(), id.TenantID, id.Role)
		if !guard.IsAdmin() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
