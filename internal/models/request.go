package models

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses
const (
	RequestStatusOpen      = "open"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusReclaimed = "reclaimed"
)

// Valid state transitions: from -> []to. Fulfilled and reclaimed are
// terminal — a settled deposit is never moved again.
var ValidRequestTransitions = map[string][]string{
	RequestStatusOpen:      {RequestStatusFulfilled, RequestStatusReclaimed},
	RequestStatusFulfilled: {},
	RequestStatusReclaimed: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidRequestTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	allowed, ok := ValidRequestTransitions[status]
	return ok && len(allowed) == 0
}

// Request is a single escrowed ask. Field order is the serialized order and
// is stable — external readers index into records positionally.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	Seq         int64      `json:"seq"` // creation order, assigned by the store
	RequesterID uuid.UUID  `json:"requester_id"`
	Content     string     `json:"content"`      // opaque to the ledger
	ContactInfo string     `json:"contact_info"` // opaque, out-of-band delivery hint
	DepositNano int64      `json:"deposit_nano"` // nanoton, never floating point
	Deadline    time.Time  `json:"deadline"`
	Status      string     `json:"status"`
	Fulfillment *string    `json:"fulfillment,omitempty"`
	FulfilledBy *uuid.UUID `json:"fulfilled_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
