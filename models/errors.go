package models

import (
	"fmt"

	"github.com/pkg/errors"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// GatewayError wraps a failed or timed out call to the payment gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ConflictError is a unique-constraint violation. Callers recover it by re-reading the row.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %v", e.Resource, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render receipt: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// InvalidTransitionError is returned when a payment in a terminal status is asked to move.
type InvalidTransitionError struct {
	PaymentID string
	From      PaymentStatus
	To        PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("payment %s cannot move from %s to %s", e.PaymentID, e.From, e.To)
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsGateway(err error) bool {
	_, ok := errors.Cause(err).(*GatewayError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func IsRender(err error) bool {
	_, ok := errors.Cause(err).(*RenderError)
	return ok
}

func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*InvalidTransitionError)
	return ok
}
