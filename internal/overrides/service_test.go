package overrides

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

type mockStore struct {
	rows      map[string]Override
	nextID    int64
	upsertErr error
}

func newMockStore() *mockStore {
	return &mockStore{rows: make(map[string]Override), nextID: 1}
}

func storeKey(ov Override) string {
	return ov.TenantID.String() + "/" + string(ov.Role) + "/" + string(ov.Module)
}

func (m *mockStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Override, error) {
	var out []Override
	for _, ov := range m.rows {
		if ov.TenantID == tenantID {
			out = append(out, ov)
		}
	}
	return out, nil
}

func (m *mockStore) Upsert(ctx context.Context, ov Override) (Override, error) {
	if m.upsertErr != nil {
		return Override{}, m.upsertErr
	}
	key := storeKey(ov)
	if existing, ok := m.rows[key]; ok {
		ov.ID = existing.ID
	} else {
		ov.ID = m.nextID
		m.nextID++
	}
	m.rows[key] = ov
	return ov, nil
}

func (m *mockStore) Delete(ctx context.Context, tenantID uuid.UUID, role policy.RoleID, module policy.ModuleID) error {
	key := storeKey(Override{TenantID: tenantID, Role: role, Module: module})
	if _, ok := m.rows[key]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, key)
	return nil
}

type mockAuditor struct {
	entries []shared.AuditEntry
	err     error
}

func (m *mockAuditor) Record(ctx context.Context, entry shared.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockInvalidator struct {
	calls []string
	err   error
}

func (m *mockInvalidator) Invalidate(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) error {
	m.calls = append(m.calls, tenantID.String()+"/"+string(role))
	return m.err
}

func TestPutStoresAuditsAndInvalidates(t *testing.T) {
	store := newMockStore()
	audit := &mockAuditor{}
	inv := &mockInvalidator{}
	svc := NewService(store, audit, inv, nil, slog.Default())

	tenantID := uuid.New()
	grant := true
	stored, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: tenantID,
		Role:     policy.RoleWarehouseManager,
		Module:   policy.ModuleInventory,
		Delete:   &grant,
		Custom:   map[string]bool{"can_view_cost_price": false},
	})
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "override.put", audit.entries[0].Action)
	assert.Equal(t, "admin-7", audit.entries[0].ActorID)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, tenantID.String()+"/warehouse_manager", inv.calls[0])
}

func TestPutRejectsUnknownModule(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: uuid.New(),
		Role:     policy.RoleWarehouseManager,
		Module:   "procurement",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPutRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: uuid.New(),
		Role:     "branch_overlord",
		Module:   policy.ModuleInventory,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPutRejectsMissingTenant(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, nil, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		Role:   policy.RoleWarehouseManager,
		Module: policy.ModuleInventory,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPutSurfacesStoreError(t *testing.T) {
	store := newMockStore()
	store.upsertErr = errors.New("connection reset")
	audit := &mockAuditor{}
	inv := &mockInvalidator{}
	svc := NewService(store, audit, inv, nil, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: uuid.New(),
		Role:     policy.RoleDriver,
		Module:   policy.ModuleTransport,
	})
	require.Error(t, err)
	assert.Empty(t, audit.entries)
	assert.Empty(t, inv.calls)
}

func TestPutSucceedsWhenAuditFails(t *testing.T) {
	// Audit is observability, not a write barrier.
	store := newMockStore()
	audit := &mockAuditor{err: errors.New("audit table missing")}
	inv := &mockInvalidator{}
	svc := NewService(store, audit, inv, nil, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: uuid.New(),
		Role:     policy.RoleDriver,
		Module:   policy.ModuleTransport,
	})
	require.NoError(t, err)
	require.Len(t, inv.calls, 1)
}

func TestRemoveInvalidatesOnlyOnSuccess(t *testing.T) {
	store := newMockStore()
	inv := &mockInvalidator{}
	svc := NewService(store, nil, inv, nil, slog.Default())

	tenantID := uuid.New()
	err := svc.Remove(context.Background(), "admin-7", tenantID, policy.RoleDriver, policy.ModuleTransport)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, inv.calls)

	_, err = svc.Put(context.Background(), "admin-7", Override{
		TenantID: tenantID,
		Role:     policy.RoleDriver,
		Module:   policy.ModuleTransport,
	})
	require.NoError(t, err)

	err = svc.Remove(context.Background(), "admin-7", tenantID, policy.RoleDriver, policy.ModuleTransport)
	require.NoError(t, err)
	assert.Len(t, inv.calls, 2)
}

type mockQueue struct {
	payloads []jobs.AccessInvalidatePayload
	err      error
}

func (m *mockQueue) EnqueueAccessInvalidate(ctx context.Context, payload jobs.AccessInvalidatePayload) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.payloads = append(m.payloads, payload)
	return &asynq.TaskInfo{}, nil
}

func TestPutFallsBackToQueueWhenBumpFails(t *testing.T) {
	store := newMockStore()
	inv := &mockInvalidator{err: errors.New("redis gone")}
	queue := &mockQueue{}
	svc := NewService(store, nil, inv, queue, slog.Default())

	tenantID := uuid.New()
	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: tenantID,
		Role:     policy.RoleDriver,
		Module:   policy.ModuleTransport,
	})
	require.NoError(t, err)
	require.Len(t, queue.payloads, 1)
	assert.Equal(t, tenantID.String(), queue.payloads[0].TenantID)
	assert.Equal(t, "driver", queue.payloads[0].Role)
}

func TestPutSkipsQueueWhenBumpSucceeds(t *testing.T) {
	store := newMockStore()
	inv := &mockInvalidator{}
	queue := &mockQueue{}
	svc := NewService(store, nil, inv, queue, slog.Default())

	_, err := svc.Put(context.Background(), "admin-7", Override{
		TenantID: uuid.New(),
		Role:     policy.RoleDriver,
		Module:   policy.ModuleTransport,
	})
	require.NoError(t, err)
	assert.Len(t, inv.calls, 1)
	assert.Empty(t, queue.payloads)
}
