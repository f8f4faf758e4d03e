// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package api serves the tournament service over HTTP/JSON.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/rostercraft/rostercraft/internal/observability"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

const maxBodyBytes = 1 << 20

// DefaultWriteLimit is the number of writes per client per minute.
const DefaultWriteLimit = 60

// Handler serves the tournament API.
type Handler struct {
	service    tournament.Service
	metrics    *observability.Metrics
	logger     *slog.Logger
	validate   *validator.Validate
	writeLimit int
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithWriteLimit sets how many write requests a client may make per minute.
func WithWriteLimit(n int) Option {
	return func(h *Handler) { h.writeLimit = n }
}

// NewHandler creates a handler backed by service.
func NewHandler(service tournament.Service, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		logger:     slog.Default(),
		validate:   validator.New(),
		writeLimit: DefaultWriteLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router with every API route mounted under /v1.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	limiter := httprate.Limit(h.writeLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if h.metrics != nil {
				h.metrics.RateLimited.WithLabelValues(routePattern(r)).Inc()
			}
			writeRateLimited(w)
		}),
	)

	r.Route("/v1/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/roles", h.listRoles)
		r.With(limiter).Put("/roles/order", h.persistRoleOrder)
		r.With(limiter).Delete("/roles/{roleID}", h.deleteRole)
		r.Get("/permissions/{action}", h.getPermission)
		r.With(limiter).Put("/permissions/{action}", h.persistPermission)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "no such route"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})
	return r
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	tid, err := pathID(r, "tournamentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	roles, err := h.service.ListRoles(r.Context(), tid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RolesResponse{Roles: FromRoles(tournament.SortRoles(roles))})
}

func (h *Handler) persistRoleOrder(w http.ResponseWriter, r *http.Request) {
	tid, err := pathID(r, "tournamentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req OrderRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	roles, err := ToRoles(req.Roles)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.service.PersistRoleOrder(r.Context(), tid, tournament.SortRoles(roles))
	h.countWrite("role_order", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RolesResponse{Roles: FromRoles(saved)})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	tid, err := pathID(r, "tournamentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rid, err := pathID(r, "roleID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	role, err := h.service.DeleteRole(r.Context(), tid, rid)
	h.countWrite("role_delete", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{Role: FromRole(role)})
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	tid, action, err := permissionPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	grant, err := h.service.GetPermission(r.Context(), tid, action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionResponse{Permission: FromGrant(grant)})
}

func (h *Handler) persistPermission(w http.ResponseWriter, r *http.Request) {
	tid, action, err := permissionPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req PermissionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	roles, staff, err := ParseIDSets(req.TournamentRoles, req.StaffMembers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	grant, err := h.service.PersistPermission(r.Context(), tid, action, roles, staff)
	h.countWrite("permission", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionResponse{Permission: FromGrant(grant)})
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalid(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return invalid(err)
	}
	return nil
}

func (h *Handler) countWrite(kind string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.RemoteWrites.WithLabelValues(kind, outcome).Inc()
}

// instrument records request count and latency by route pattern.
func (h *Handler) instrument(next http.Handler) http.Handler {
	if h.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		h.metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

func pathID(r *http.Request, param string) (ulid.ULID, error) {
	return parseID(param, chi.URLParam(r, param))
}

func permissionPath(r *http.Request) (ulid.ULID, tournament.Action, error) {
	tid, err := pathID(r, "tournamentID")
	if err != nil {
		return ulid.ULID{}, "", err
	}
	action := tournament.Action(chi.URLParam(r, "action"))
	if !action.Valid() {
		return ulid.ULID{}, "", unknownAction(action)
	}
	return tid, action, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
