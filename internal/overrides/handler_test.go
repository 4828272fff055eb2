package overrides

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// passGate admits every request; gating has its own tests in the access
// package.
type passGate struct{}

func (passGate) Require(policy.ModuleID, policy.ActionID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func newTestRouter(t *testing.T, svc *Service) http.Handler {
	t.Helper()
	handler := NewHandler(slog.Default(), svc, passGate{}, nil)
	r := chi.NewRouter()
	r.Route("/permissions", func(r chi.Router) {
		handler.MountRoutes(r)
	})
	return r
}

func withIdentity(req *http.Request, tenantID uuid.UUID) *http.Request {
	ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{
		TenantID: tenantID,
		UserID:   "admin-7",
		Role:     policy.RoleOrgAdmin,
	})
	return req.WithContext(ctx)
}

func TestPutOverrideEndpoint(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)
	tenantID := uuid.New()

	body := `{"role":"warehouse_manager","module":"inventory","can_delete":true,"custom_permissions":{"can_view_cost_price":false}}`
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/permissions/overrides", strings.NewReader(body)), tenantID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp overrideResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "warehouse_manager", resp.Role)
	require.NotNil(t, resp.CanDelete)
	assert.True(t, *resp.CanDelete)
	assert.Nil(t, resp.CanView)
	assert.Equal(t, map[string]bool{"can_view_cost_price": false}, resp.Custom)
}

func TestPutOverrideValidation(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)
	tenantID := uuid.New()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"role":`},
		{"missing role", `{"module":"inventory"}`},
		{"missing module", `{"role":"driver"}`},
		{"unknown module", `{"role":"driver","module":"procurement"}`},
		{"unknown role", `{"role":"branch_overlord","module":"inventory"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withIdentity(httptest.NewRequest(http.MethodPut, "/permissions/overrides", strings.NewReader(tc.body)), tenantID)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestListOverridesScopedToTenant(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)

	tenantA := uuid.New()
	tenantB := uuid.New()
	grant := true
	_, err := svc.Put(t.Context(), "admin-7", Override{TenantID: tenantA, Role: policy.RoleDriver, Module: policy.ModuleTransport, Edit: &grant})
	require.NoError(t, err)
	_, err = svc.Put(t.Context(), "admin-7", Override{TenantID: tenantB, Role: policy.RoleDriver, Module: policy.ModuleTransport, Delete: &grant})
	require.NoError(t, err)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/permissions/overrides", nil), tenantA)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Overrides []overrideResponse `json:"overrides"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Overrides, 1)
	require.NotNil(t, resp.Overrides[0].CanEdit)
	assert.Nil(t, resp.Overrides[0].CanDelete)
}

func TestDeleteOverrideEndpoint(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)
	tenantID := uuid.New()

	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/permissions/overrides/driver/transport", nil), tenantID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, err := svc.Put(t.Context(), "admin-7", Override{TenantID: tenantID, Role: policy.RoleDriver, Module: policy.ModuleTransport})
	require.NoError(t, err)

	req = withIdentity(httptest.NewRequest(http.MethodDelete, "/permissions/overrides/driver/transport", nil), tenantID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/permissions/catalog", nil), uuid.New())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Modules []string `json:"modules"`
		Actions []string `json:"actions"`
		Roles   []string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Modules, 11)
	assert.Len(t, resp.Actions, 6)
	assert.Contains(t, resp.Roles, "super_admin")
}

func TestDefaultsEndpointFlagsUnknownRole(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())
	router := newTestRouter(t, svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/permissions/defaults/branch_overlord", nil), uuid.New())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		RoleFallback bool                               `json:"role_fallback"`
		Capabilities map[string]policy.CapabilityRecord `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.RoleFallback)
	assert.False(t, resp.Capabilities["settings"].View)
	assert.True(t, resp.Capabilities["dashboard"].View)
}
