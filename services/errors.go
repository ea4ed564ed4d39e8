package services

import (
	"errors"
	"net/http"
)

// Error taxonomy reported to callers. Services wrap these with context via
// fmt.Errorf("...: %w", Err...); controllers map them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrRoleRequired signals a first-time Google sign-in that must pick a
	// parent or child role before an account can be provisioned.
	ErrRoleRequired = errors.New("role selection required")
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRoleRequired):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
