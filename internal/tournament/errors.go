// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package tournament

import "errors"

// Error codes attached to oops errors.
const (
	CodeIndexOutOfRange     = "INDEX_OUT_OF_RANGE"
	CodeRoleNotFound        = "ROLE_NOT_FOUND"
	CodeProtectedRole       = "PROTECTED_ROLE"
	CodeRemoteFailure       = "REMOTE_FAILURE"
	CodeSaveInProgress      = "SAVE_IN_PROGRESS"
	CodeSuperseded          = "SUPERSEDED"
	CodeForbidden           = "FORBIDDEN"
	CodeRoleOrderConflict   = "ROLE_ORDER_CONFLICT"
	CodeTournamentNotFound  = "TOURNAMENT_NOT_FOUND"
	CodeTournamentExists    = "TOURNAMENT_EXISTS"
	CodeStaffMemberNotFound = "STAFF_MEMBER_NOT_FOUND"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeInvalidRequest      = "INVALID_REQUEST"
)

var (
	// ErrIndexOutOfRange is a local precondition violation by the caller.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrRoleNotFound means the referenced role is not present.
	ErrRoleNotFound = errors.New("role not found")
	// ErrProtectedRole means a protected role was asked to be deleted.
	ErrProtectedRole = errors.New("protected roles cannot be deleted")
	// ErrRemote matches every *RemoteError.
	ErrRemote = errors.New("remote tournament service failure")
	// ErrSaveInProgress rejects a remote write while another one is in flight.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrSuperseded reports a remote result discarded because state was reloaded meanwhile.
	ErrSuperseded = errors.New("result superseded by a newer load")
	// ErrForbidden means an actor is not authorized for an action.
	ErrForbidden = errors.New("actor is not authorized for this action")
	// ErrRoleOrderConflict means a persisted order does not name exactly the tournament's roles.
	ErrRoleOrderConflict = errors.New("role order does not match the tournament's roles")
	// ErrTournamentNotFound means the tournament does not exist.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrTournamentExists means a tournament with the same id was already created.
	ErrTournamentExists = errors.New("tournament already exists")
	// ErrStaffMemberNotFound means a grant references an unknown staff member.
	ErrStaffMemberNotFound = errors.New("staff member not found")
	// ErrUnknownAction means the gated action is not recognised.
	ErrUnknownAction = errors.New("unknown action")
)

// RemoteError reports a failed call to the remote tournament service. Err keeps
// the service's own error so its message can be shown to the user.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the remote cause.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every RemoteError match ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// IsRemote reports whether err came from the remote service.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}
