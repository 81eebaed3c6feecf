// Package lookup fetches a person record by identifier type and number from the
// portal's lookup endpoints.
package lookup

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the endpoint answers 404.
var ErrNotFound = errors.New("record not found")

// DefaultErrorMessage is used when a failed response carries no usable message.
const DefaultErrorMessage = "user lookup failed"

// Entity is a looked-up record: attribute name to decoded JSON value.
// Numbers are kept as json.Number so they render exactly as sent.
type Entity map[string]any

// Has reports whether the entity defines a non-null value for attr.
func (e Entity) Has(attr string) bool {
	v, ok := e[attr]
	return ok && v != nil
}

// Request identifies the record to look up.
type Request struct {
	Type   string
	Number string
}

// Lookuper resolves a Request to an Entity. Implementations return ErrNotFound
// when the record does not exist and *Error for every other failure.
type Lookuper interface {
	Lookup(ctx context.Context, req Request) (Entity, error)
}

// Error is the single normalized failure of a lookup: transport errors,
// unexpected statuses, and undecodable bodies all end up here.
type Error struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(status int, message string, err error) *Error {
	if message == "" {
		message = DefaultErrorMessage
	}
	return &Error{Status: status, Message: message, Err: err}
}

// Func adapts a function to the Lookuper interface.
type Func func(ctx context.Context, req Request) (Entity, error)

// Lookup calls f.
func (f Func) Lookup(ctx context.Context, req Request) (Entity, error) {
	return f(ctx, req)
}

// String formats a request for logs.
func (r Request) String() string {
	return fmt.Sprintf("%s %s", r.Type, r.Number)
}
