package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pagebuilder/api/internal/scope"
)

// DomainError is an error with a fixed response shape. Err is the underlying
// cause, if any; it is logged but never sent to clients.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// scopeNotFound is the single scope failure shape. The status differs per
// operation; the body never says which link of the chain was missing.
func scopeNotFound(status int) *DomainError {
	if status == http.StatusBadRequest {
		return domainError(status, "BAD_REQUEST", "Bad request", nil)
	}
	return domainError(status, "NOT_FOUND", "Not found", nil)
}

// scopeError maps scope.ErrNotFound to the operation's status and passes
// storage failures through.
func scopeError(err error, status int) error {
	if errors.Is(err, scope.ErrNotFound) {
		return scopeNotFound(status)
	}
	return err
}

// decodeJSON decodes a request body that was read before its scope was
// resolved. Malformed JSON is a 400 INVALID_BODY.
func decodeJSON(raw []byte, target any) error {
	if err := json.Unmarshal(raw, target); err != nil {
		dErr := domainError(http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		dErr.Err = err
		return dErr
	}
	return nil
}
