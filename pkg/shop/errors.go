package shop

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/foodshop/pkg/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOperationFailed   = errors.New("operation failed")
	ErrUserNotRegistered = errors.New("user not registered")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
)

// ValidationError carries per-field messages for input rejected before any persistence call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid data"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid data: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// OpError is a failed persistence operation. Callers only see the operation name;
// the cause is kept for logs.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	return target == ErrOperationFailed
}

// Message is the user-facing text, e.g. "Failed to create category".
func (e *OpError) Message() string {
	return "Failed to " + e.Op
}

func fail(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return &OpError{Op: op, Err: err}
}
