// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package remote is an HTTP client for the tournament API. It implements
// tournament.Service, so the role list and permission resolvers can run
// against a RosterCraft server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rostercraft/rostercraft/internal/api"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

var tracer = otel.Tracer("rostercraft/remote")

// DefaultTimeout bounds every request unless WithHTTPClient says otherwise.
const DefaultTimeout = 10 * time.Second

// StatusError is a non-2xx response. Message is the server's own message.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return e.Message
}

// Unwrap returns the tournament sentinel matching Code, so errors.Is works
// across the wire.
func (e *StatusError) Unwrap() error {
	return api.SentinelFor(e.Code)
}

// Client calls the tournament API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. It is used as is: its transport and
// timeout are never changed, and WithTimeout does not apply to it.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// New creates a client for the API at baseURL, for example
// "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, oops.Code("INVALID_REMOTE_URL").With("url", baseURL).Errorf("invalid API URL %q", baseURL)
	}
	c := &Client{baseURL: u, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   c.timeout,
		}
	}
	return c, nil
}

// ListRoles implements tournament.RoleService.
func (c *Client) ListRoles(ctx context.Context, tournamentID ulid.ULID) ([]tournament.Role, error) {
	var out api.RolesResponse
	if err := c.call(ctx, "ListRoles", http.MethodGet, rolesPath(tournamentID), nil, &out,
		attribute.String("tournament.id", tournamentID.String())); err != nil {
		return nil, err
	}
	return api.ToRoles(out.Roles)
}

// PersistRoleOrder implements tournament.RoleService.
func (c *Client) PersistRoleOrder(ctx context.Context, tournamentID ulid.ULID, roles []tournament.Role) ([]tournament.Role, error) {
	req := api.OrderRequest{Roles: api.FromRoles(roles)}
	var out api.RolesResponse
	if err := c.call(ctx, "PersistRoleOrder", http.MethodPut, rolesPath(tournamentID)+"/order", req, &out,
		attribute.String("tournament.id", tournamentID.String()),
		attribute.Int("roles.count", len(roles))); err != nil {
		return nil, err
	}
	return api.ToRoles(out.Roles)
}

// DeleteRole implements tournament.RoleService.
func (c *Client) DeleteRole(ctx context.Context, tournamentID, roleID ulid.ULID) (tournament.Role, error) {
	var out api.RoleResponse
	if err := c.call(ctx, "DeleteRole", http.MethodDelete, rolesPath(tournamentID)+"/"+roleID.String(), nil, &out,
		attribute.String("tournament.id", tournamentID.String()),
		attribute.String("role.id", roleID.String())); err != nil {
		return tournament.Role{}, err
	}
	return api.ToRole(out.Role)
}

// GetPermission implements tournament.PermissionService.
func (c *Client) GetPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action) (tournament.PermissionGrant, error) {
	var out api.PermissionResponse
	if err := c.call(ctx, "GetPermission", http.MethodGet, permissionPath(tournamentID, action), nil, &out,
		attribute.String("tournament.id", tournamentID.String()),
		attribute.String("permission.action", string(action))); err != nil {
		return tournament.PermissionGrant{}, err
	}
	return api.ToGrant(out.Permission)
}

// PersistPermission implements tournament.PermissionService.
func (c *Client) PersistPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error) {
	g := api.FromGrant(tournament.PermissionGrant{RoleIDs: roleIDs, StaffIDs: staffIDs})
	req := api.PermissionRequest{TournamentRoles: g.TournamentRoles, StaffMembers: g.StaffMembers}
	var out api.PermissionResponse
	if err := c.call(ctx, "PersistPermission", http.MethodPut, permissionPath(tournamentID, action), req, &out,
		attribute.String("tournament.id", tournamentID.String()),
		attribute.String("permission.action", string(action)),
		attribute.Int("permission.roles", len(roleIDs)),
		attribute.Int("permission.staff", len(staffIDs))); err != nil {
		return tournament.PermissionGrant{}, err
	}
	return api.ToGrant(out.Permission)
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := tracer.Start(ctx, "remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return oops.With("operation", op).Wrap(merr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return oops.With("operation", op).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.With("operation", op).With("url", req.URL.String()).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.With("operation", op).Wrapf(err, "decode response")
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // best effort
	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		se.Code, se.Message = body.Code, body.Message
		return se
	}
	se.Code = "HTTP_" + fmt.Sprint(resp.StatusCode)
	se.Message = strings.TrimSpace(string(data))
	if se.Message == "" {
		se.Message = http.StatusText(resp.StatusCode)
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

func rolesPath(tournamentID ulid.ULID) string {
	return "/v1/tournaments/" + tournamentID.String() + "/roles"
}

func permissionPath(tournamentID ulid.ULID, action tournament.Action) string {
	return "/v1/tournaments/" + tournamentID.String() + "/permissions/" + url.PathEscape(string(action))
}

var _ tournament.Service = (*Client)(nil)
