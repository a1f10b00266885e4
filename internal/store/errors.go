package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// e.g. registering an email that is already taken.
var ErrConflict = errors.New("conflict")

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// translate maps driver-level errors onto the store sentinels so callers
// only ever match on ErrNotFound and ErrConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrConflict
	}
	return err
}
