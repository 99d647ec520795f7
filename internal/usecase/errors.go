package usecase

import (
	"errors"
	"fmt"
	"strings"

	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationError rejects malformed input before any state is read.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, utils.FormatValidationErrors(e.Fields))
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func invalidFields(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "invalid request", Fields: fields}
}

type ConflictReason string

const (
	ConflictNotAvailable    ConflictReason = "not_available"
	ConflictAlreadyAssigned ConflictReason = "already_assigned"
)

type UnitConflict struct {
	UnitID uuid.UUID      `json:"unit_id"`
	Label  string         `json:"label"`
	Reason ConflictReason `json:"reason"`
}

// ConflictError reports units that could not be claimed, or a uniqueness
// clash when Units is empty.
type ConflictError struct {
	Message string
	Units   []UnitConflict
}

func (e *ConflictError) Error() string {
	if len(e.Units) == 0 {
		return "conflict: " + e.Message
	}

	parts := make([]string, len(e.Units))
	for i, c := range e.Units {
		parts[i] = fmt.Sprintf("%s %s", c.Label, c.Reason)
	}
	return fmt.Sprintf("conflict: %s: %s", e.Message, strings.Join(parts, ", "))
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func notFound(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// StateError means the caller asked for a transition the current state does not allow.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return "invalid state: " + e.Message
}

func invalidState(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// isBusinessError reports whether err is one of the typed rejections above,
// as opposed to an infrastructure failure.
func isBusinessError(err error) bool {
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
		se *StateError
	)
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ne) || errors.As(err, &se)
}

// logFailure logs rejections at Warn and everything else at Error.
func logFailure(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if isBusinessError(err) {
		log.Warn(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}
