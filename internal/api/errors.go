// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package api

import (
	"errors"
	"net/http"

	"github.com/rostercraft/rostercraft/internal/tournament"
	"github.com/rostercraft/rostercraft/pkg/errutil"
)

// Error codes that exist only on the wire.
const (
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{tournament.ErrTournamentNotFound, http.StatusNotFound, tournament.CodeTournamentNotFound},
	{tournament.ErrRoleNotFound, http.StatusNotFound, tournament.CodeRoleNotFound},
	{tournament.ErrUnknownAction, http.StatusNotFound, tournament.CodeUnknownAction},
	{tournament.ErrRoleOrderConflict, http.StatusConflict, tournament.CodeRoleOrderConflict},
	{tournament.ErrTournamentExists, http.StatusConflict, tournament.CodeTournamentExists},
	{tournament.ErrProtectedRole, http.StatusUnprocessableEntity, tournament.CodeProtectedRole},
	{tournament.ErrStaffMemberNotFound, http.StatusUnprocessableEntity, tournament.CodeStaffMemberNotFound},
}

// StatusFor returns the HTTP status and wire code for err.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	if errutil.Code(err) == tournament.CodeInvalidRequest {
		return http.StatusBadRequest, tournament.CodeInvalidRequest
	}
	return http.StatusInternalServerError, CodeInternal
}

// SentinelFor returns the sentinel a wire code stands for, or nil.
func SentinelFor(code string) error {
	for _, m := range errorMappings {
		if m.code == code {
			return m.target
		}
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		errutil.LogError(h.logger, "request failed", err,
			"method", r.Method,
			"path", r.URL.Path)
		msg = http.StatusText(status)
	} else {
		h.logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"code", code,
			"error", err)
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

func writeRateLimited(w http.ResponseWriter) {
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Code:    CodeRateLimited,
		Message: http.StatusText(http.StatusTooManyRequests),
	})
}
