package events

import "context"

// Event types
const (
	EventRequestCreated   = "request_created"
	EventRequestFulfilled = "request_fulfilled"
	EventRequestReclaimed = "request_reclaimed"
	EventRequestExpired   = "request_expired"
	EventDepositCredited  = "deposit_credited"
)

// StreamRequests carries every request lifecycle fact.
const StreamRequests = "events:request"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
