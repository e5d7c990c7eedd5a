package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AllowList authorizes a fixed set of responder accounts. It is the default
// Authorizer; deployments with richer policies inject their own.
type AllowList []uuid.UUID

func (a AllowList) CanFulfill(ctx context.Context, userID uuid.UUID) bool {
	for _, id := range a {
		if id == userID {
			return true
		}
	}
	return false
}
