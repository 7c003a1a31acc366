// Package domain defines audit events emitted by the connector lifecycle.
//
// Events never carry raw secrets: metadata values under sensitive keys are masked before
// an event is signed and persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action names the lifecycle operation an event records.
type Action string

const (
	ActionInitiate   Action = "connector.initiate"
	ActionCallback   Action = "connector.callback"
	ActionRefresh    Action = "connector.refresh"
	ActionDisconnect Action = "connector.disconnect"
	ActionTest       Action = "connector.test"
)

// Outcome is the result of the recorded operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is a signed, append-only audit record.
type Event struct {
	ID        uuid.UUID
	RequestID string
	TenantID  string
	Provider  string
	Action    Action
	Outcome   Outcome
	Reason    string
	Metadata  map[string]any
	Signature []byte
	CreatedAt time.Time
}
