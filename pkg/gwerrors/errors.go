// SPDX-License-Identifier: Apache-2.0

// Package gwerrors defines the machine-readable error taxonomy shared by
// every component of the gateway core.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error categories a caller can switch on.
type Kind string

const (
	KindConnection Kind = "connection"
	KindPermission Kind = "permission"
	KindSchema     Kind = "schema"
	KindParse      Kind = "parse"
	KindDangerous  Kind = "dangerous_operation_blocked"
	KindTransaction Kind = "transaction"
	KindTimeout    Kind = "timeout"
	KindDatabase   Kind = "database"
)

// Error is the structured error type returned across package boundaries.
// Detail is a human-readable message; Hint, if non-empty, carries a
// remediation suggestion (e.g. "pass allow_dangerous: true to proceed").
type Error struct {
	Kind    Kind
	Detail  string
	Backend string // "sqlite", "postgres", "mysql"; empty if not backend-specific
	Hint    string
	Danger  []string // offending danger kinds, only set for KindDangerous
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	if e.Backend != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Backend)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &gwerrors.Error{Kind: gwerrors.KindDangerous}) matches any
// error of that kind. A bare Kind value is not an error and never matches.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Connection errors.

func UnknownConnection(id string) *Error {
	return newf(KindConnection, "unknown connection id %q", id)
}

func DuplicateConnection(id string) *Error {
	return newf(KindConnection, "connection id %q is already registered", id)
}

func DatabaseOverrideNotAllowed(id, requested string) *Error {
	return newf(KindConnection, "connection %q is bound to a fixed database; cannot override with %q", id, requested)
}

func InvalidSpec(detail string) *Error {
	return newf(KindConnection, "invalid connection spec: %s", detail)
}

func PoolCreationFailed(database string, cause error) *Error {
	return &Error{Kind: KindConnection, Detail: fmt.Sprintf("failed to create pool for database %q", database), Cause: cause}
}

// Permission errors.

func ReadOnlyConnection(id string) *Error {
	return &Error{
		Kind:   KindPermission,
		Detail: fmt.Sprintf("connection %q is read-only", id),
		Hint:   "register the connection with writable=true to allow writes",
	}
}

// Schema errors.

func DatabaseRequired() *Error {
	return &Error{
		Kind:   KindSchema,
		Detail: "a target database is required for this operation on a server-level connection",
		Hint:   "pass database=<name> explicitly",
	}
}

func NotSupported(backend, op string) *Error {
	return newf(KindSchema, "%s does not support %s", backend, op)
}

func UnknownTable(name string) *Error {
	return newf(KindSchema, "unknown table %q", name)
}

// Parse errors.

func ParseFailure(backend string, cause error) *Error {
	return &Error{Kind: KindParse, Backend: backend, Detail: "failed to parse SQL", Cause: cause}
}

// Dangerous operation.

func Dangerous(kinds []string) *Error {
	return &Error{
		Kind:   KindDangerous,
		Detail: fmt.Sprintf("statement contains disallowed dangerous operations: %v", kinds),
		Hint:   "pass allow_dangerous: true to proceed",
		Danger: kinds,
	}
}

// Transaction errors.

func TransactionNotFound(txID string) *Error {
	return newf(KindTransaction, "transaction %q not found", txID)
}

func TransactionExpired(txID string) *Error {
	return newf(KindTransaction, "transaction %q has expired", txID)
}

func TransactionContention(txID string) *Error {
	return newf(KindTransaction, "transaction %q is in use by another request", txID)
}

// Timeout.

func StatementTimeout(cause error) *Error {
	return &Error{Kind: KindTimeout, Detail: "statement exceeded its deadline", Cause: cause}
}

// Database (driver-surfaced).

func Driver(backend string, cause error) *Error {
	return &Error{Kind: KindDatabase, Backend: backend, Detail: "driver error", Cause: cause}
}

// As is a thin convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
