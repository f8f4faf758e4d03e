// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rostercraft/rostercraft/internal/api"
	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/observability"
	"github.com/rostercraft/rostercraft/internal/tournament"
	"github.com/rostercraft/rostercraft/internal/tournament/tournamenttest"
)

type fixture struct {
	svc     *tournamenttest.Service
	tid     ulid.ULID
	admin   tournament.Role
	referee tournament.Role
	server  *httptest.Server
	metrics *observability.Metrics
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	f := &fixture{
		svc:     tournamenttest.NewService(),
		tid:     core.NewULID(),
		admin:   tournament.Role{ID: core.NewULID(), Name: "admin", Position: 0, IsProtected: true},
		referee: tournament.Role{ID: core.NewULID(), Name: "referee", Position: 1},
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	f.svc.SetRoles(f.tid, f.referee, f.admin)
	opts = append([]api.Option{api.WithMetrics(f.metrics)}, opts...)
	f.server = httptest.NewServer(api.NewHandler(f.svc, opts...).Routes())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) url(path string) string {
	return f.server.URL + "/v1/tournaments/" + f.tid.String() + path
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func decodeError(t *testing.T, body []byte) api.ErrorResponse {
	t.Helper()
	var e api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestListRoles_SortedByPosition(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, http.MethodGet, f.url("/roles"), "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out api.RolesResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Roles, 2)
	assert.Equal(t, "admin", out.Roles[0].Name)
	assert.True(t, out.Roles[0].IsProtected)
	assert.Equal(t, 1, *out.Roles[1].Position)
}

func TestListRoles_EmptyIsArray(t *testing.T) {
	f := newFixture(t)

	_, body := do(t, http.MethodGet, f.server.URL+"/v1/tournaments/"+core.NewULID().String()+"/roles", "")

	assert.JSONEq(t, `{"roles":[]}`, string(body))
}

func TestPersistRoleOrder_OrdersByPosition(t *testing.T) {
	f := newFixture(t)
	body := `{"roles":[{"id":"` + f.admin.ID.String() + `","position":1},{"id":"` + f.referee.ID.String() + `","position":0}]}`

	resp, out := do(t, http.MethodPut, f.url("/roles/order"), body)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(out))
	orders := f.svc.PersistedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, []ulid.ULID{f.referee.ID, f.admin.ID}, tournament.RoleIDs(orders[0]))

	var saved api.RolesResponse
	require.NoError(t, json.Unmarshal(out, &saved))
	assert.Equal(t, f.referee.ID.String(), saved.Roles[0].ID)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RemoteWrites.WithLabelValues("role_order", "ok")), 0)
}

func TestPersistRoleOrder_BadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"roles":`},
		{"unknown field", `{"roles":[],"extra":1}`},
		{"missing position", `{"roles":[{"id":"` + f.admin.ID.String() + `"}]}`},
		{"negative position", `{"roles":[{"id":"` + f.admin.ID.String() + `","position":-1}]}`},
		{"short id", `{"roles":[{"id":"abc","position":0}]}`},
		{"invalid ulid", `{"roles":[{"id":"UUUUUUUUUUUUUUUUUUUUUUUUUU","position":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPut, f.url("/roles/order"), tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tournament.CodeInvalidRequest, decodeError(t, body).Code)
		})
	}
	assert.Zero(t, f.svc.Calls(tournamenttest.OpPersistRoleOrder))
}

func TestDeleteRole(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, http.MethodDelete, f.url("/roles/"+f.referee.ID.String()), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.RoleResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "referee", out.Role.Name)

	resp, body = do(t, http.MethodDelete, f.url("/roles/"+f.admin.ID.String()), "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, tournament.CodeProtectedRole, decodeError(t, body).Code)

	resp, body = do(t, http.MethodDelete, f.url("/roles/"+core.NewULID().String()), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, tournament.CodeRoleNotFound, decodeError(t, body).Code)
}

func TestPermissions_RoundTrip(t *testing.T) {
	f := newFixture(t)
	staff := core.NewULID()
	body := `{"tournamentRoles":["` + f.admin.ID.String() + `","` + core.NewULID().String() + `"],"staffMembers":["` + staff.String() + `"]}`

	resp, out := do(t, http.MethodPut, f.url("/permissions/manage_roles"), body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(out))

	resp, out = do(t, http.MethodGet, f.url("/permissions/manage_roles"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.PermissionResponse
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "manage_roles", got.Permission.Action)
	assert.Equal(t, f.tid.String(), got.Permission.TournamentID)
	assert.Equal(t, []string{f.admin.ID.String()}, got.Permission.TournamentRoles, "foreign role dropped")
	assert.Equal(t, []string{staff.String()}, got.Permission.StaffMembers)
}

func TestPermissions_EmptyListsSerializeAsArrays(t *testing.T) {
	f := newFixture(t)

	_, out := do(t, http.MethodGet, f.url("/permissions/manage_matches"), "")

	assert.JSONEq(t, `{"permission":{"tournamentId":"`+f.tid.String()+`","action":"manage_matches","tournamentRoles":[],"staffMembers":[]}}`, string(out))
}

func TestPermissions_UnknownAction(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, http.MethodGet, f.url("/permissions/launch_rockets"), "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, tournament.CodeUnknownAction, decodeError(t, body).Code)
	assert.Zero(t, f.svc.Calls(tournamenttest.OpGetPermission))
}

func TestInvalidTournamentID(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, http.MethodGet, f.server.URL+"/v1/tournaments/not-a-ulid/roles", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, tournament.CodeInvalidRequest, decodeError(t, body).Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	resp, body := do(t, http.MethodGet, f.server.URL+"/v2/nothing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Code)
}

func TestWriteRateLimit(t *testing.T) {
	f := newFixture(t, api.WithWriteLimit(1))
	body := `{"tournamentRoles":[],"staffMembers":[]}`

	resp, _ := do(t, http.MethodPut, f.url("/permissions/manage_roles"), body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := do(t, http.MethodPut, f.url("/permissions/manage_roles"), body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, api.CodeRateLimited, decodeError(t, out).Code)
	assert.Equal(t, 1, f.svc.Calls(tournamenttest.OpPersistPermission))
	assert.InDelta(t, 1, testutil.ToFloat64(
		f.metrics.RateLimited.WithLabelValues("/v1/tournaments/{tournamentID}/permissions/{action}")), 0)

	resp, _ = do(t, http.MethodGet, f.url("/permissions/manage_roles"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}

func TestRequestMetrics(t *testing.T) {
	f := newFixture(t)

	do(t, http.MethodGet, f.url("/roles"), "")
	do(t, http.MethodGet, f.url("/roles"), "")

	assert.InDelta(t, 2, testutil.ToFloat64(
		f.metrics.RequestsTotal.WithLabelValues("/v1/tournaments/{tournamentID}/roles", http.MethodGet, "200")), 0)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) ListRoles(ctx context.Context, tid ulid.ULID) ([]tournament.Role, error) {
	args := m.Called(ctx, tid)
	roles, _ := args.Get(0).([]tournament.Role)
	return roles, args.Error(1)
}

func (m *mockService) PersistRoleOrder(ctx context.Context, tid ulid.ULID, roles []tournament.Role) ([]tournament.Role, error) {
	args := m.Called(ctx, tid, roles)
	saved, _ := args.Get(0).([]tournament.Role)
	return saved, args.Error(1)
}

func (m *mockService) DeleteRole(ctx context.Context, tid, rid ulid.ULID) (tournament.Role, error) {
	args := m.Called(ctx, tid, rid)
	return args.Get(0).(tournament.Role), args.Error(1)
}

func (m *mockService) GetPermission(ctx context.Context, tid ulid.ULID, action tournament.Action) (tournament.PermissionGrant, error) {
	args := m.Called(ctx, tid, action)
	return args.Get(0).(tournament.PermissionGrant), args.Error(1)
}

func (m *mockService) PersistPermission(ctx context.Context, tid ulid.ULID, action tournament.Action, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error) {
	args := m.Called(ctx, tid, action, roleIDs, staffIDs)
	return args.Get(0).(tournament.PermissionGrant), args.Error(1)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"tournament missing", oops.Code(tournament.CodeTournamentNotFound).Wrap(tournament.ErrTournamentNotFound), http.StatusNotFound, tournament.CodeTournamentNotFound},
		{"stale order", oops.Code(tournament.CodeRoleOrderConflict).Wrap(tournament.ErrRoleOrderConflict), http.StatusConflict, tournament.CodeRoleOrderConflict},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, api.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			tid := core.NewULID()
			svc.On("PersistRoleOrder", mock.Anything, tid, mock.Anything).Return(nil, tt.err)
			server := httptest.NewServer(api.NewHandler(svc).Routes())
			defer server.Close()

			resp, body := do(t, http.MethodPut, server.URL+"/v1/tournaments/"+tid.String()+"/roles/order", `{"roles":[]}`)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			e := decodeError(t, body)
			assert.Equal(t, tt.wantCode, e.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, e.Message, "connection refused", "internal details stay in the log")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestStatusFor_StaffMemberNotFound(t *testing.T) {
	status, code := api.StatusFor(oops.Wrap(tournament.ErrStaffMemberNotFound))

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, tournament.CodeStaffMemberNotFound, code)
	assert.Equal(t, tournament.ErrStaffMemberNotFound, api.SentinelFor(code))
	assert.Nil(t, api.SentinelFor(api.CodeInternal))
}
