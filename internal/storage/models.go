package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits an existing identity.
// Callers treat it as "already known", not as a failure.
var ErrDuplicate = errors.New("duplicate identity")

// Customer is one row of the durable customer ledger. Identity is the
// WhatsApp ID of the remote participant and is unique; Endpoint is the
// business phone number the customer wrote to. Intent and Purpose are
// written only by the session sweep's analysis step.
type Customer struct {
	ID          string    `json:"id"`
	Endpoint    string    `json:"endpoint"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	Intent      string    `json:"intent"`
	Purpose     string    `json:"purpose"`
	CreatedAt   time.Time `json:"created_at"`
}
