// Package id mints batch identifiers.
package id

import (
	"github.com/google/uuid"
)

// New returns a time-ordered UUID so batch keys sort by creation time,
// falling back to a random v4 when the clock source fails.
func New() string {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v.String()
}

// Valid reports whether s is a batch id minted by New or any other UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
