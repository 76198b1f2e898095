package order

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrForbidden            = errors.New("forbidden")
)

const pgUniqueViolation = "23505"

// ValidationError is a malformed or inconsistent request. It never mutates state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// PersistenceError wraps a store failure. Unavailable marks connectivity
// problems and timeouts, which the API reports as 503.
type PersistenceError struct {
	Op          string
	Unavailable bool
	Err         error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Unavailable: isUnavailable(err), Err: err}
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 08: connection exception, 57P01: admin shutdown
		return strings.HasPrefix(string(pqErr.Code), "08") || pqErr.Code == "57P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}
