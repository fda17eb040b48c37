package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthorizationDenied    = errors.New("authorization denied")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrUniquenessViolation    = errors.New("uniqueness violation")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateRequest       = errors.New("duplicate request")
)

type AuthorizationError struct {
	Action  string
	Allowed []Role
}

func (e *AuthorizationError) Error() string {
	if len(e.Allowed) == 0 {
		return "not allowed to " + e.Action
	}
	names := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		names[i] = string(r)
	}
	return fmt.Sprintf("only %s can %s", strings.Join(names, " or "), e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorizationDenied }

type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type InvalidStateError struct {
	Entity string
	Action string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: %s is %s", e.Action, e.Entity, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. In stock: %d, requested: %d", e.Product, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type UniquenessError struct {
	Field string
	Value string
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *UniquenessError) Unwrap() error { return ErrUniquenessViolation }

// InvalidInput builds an ErrInvalidInput with a readable reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
