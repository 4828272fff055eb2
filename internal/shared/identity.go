// Package shared holds cross-cutting request primitives: the caller
// identity, its context plumbing, the audit writer and sentinel errors.
package shared

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// Identity headers set by the trusted edge after session authentication.
const (
	HeaderTenantID = "X-Meridian-Tenant"
	HeaderUserID   = "X-Meridian-User"
	HeaderRole     = "X-Meridian-Role"
)

// ErrNoIdentity reports a request without a usable identity.
var ErrNoIdentity = errors.New("no identity on request")

// Identity is the authenticated caller of a tenant-scoped request.
type Identity struct {
	TenantID uuid.UUID
	UserID   string
	Role     policy.RoleID
}

// IdentityFromRequest reads the identity headers. The role is not checked
// against the catalog here: unknown roles flow through to resolution,
// which falls back to read_only defaults.
func IdentityFromRequest(r *http.Request) (Identity, error) {
	rawTenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
	rawRole := strings.TrimSpace(r.Header.Get(HeaderRole))
	if rawTenant == "" || rawRole == "" {
		return Identity{}, ErrNoIdentity
	}
	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return Identity{}, ErrNoIdentity
	}
	return Identity{
		TenantID: tenantID,
		UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:     policy.RoleID(strings.ToLower(rawRole)),
	}, nil
}
