package ledger

import (
	"context"
	"time"

	"github.com/askledger/backend/internal/models"
	"github.com/google/uuid"
)

// Store persists requests and account balances. Implementations must make
// each mutating call atomic: either every effect commits (record change,
// balance movement, escrow total) or none does.
//
// SettleFulfilled and SettleReclaimed are compare-and-swap on the open
// status. When the request is no longer open they fail with
// ErrAlreadyFulfilled, ErrAlreadyReclaimed or ErrNotFound, so a concurrent
// second settle observes the terminal state and never double-pays.
type Store interface {
	// CreateRequest debits the requester's balance by req.DepositNano,
	// inserts the record and adds the deposit to the escrow total, all in
	// one transaction. Fails with ErrInsufficientFunds when the account
	// cannot cover the deposit. Fills in Seq, CreatedAt and UpdatedAt.
	CreateRequest(ctx context.Context, req *models.Request) error

	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	CountRequests(ctx context.Context) (int64, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error)

	// ListExpiredOpen returns open requests whose deadline is strictly
	// before asOf, oldest first. Read-only; used by the expiry sweeper.
	ListExpiredOpen(ctx context.Context, asOf time.Time, limit int) ([]models.Request, error)

	// SettleFulfilled transitions open -> fulfilled, records the payload
	// and fulfiller, credits the deposit to payee and removes it from the
	// escrow total.
	SettleFulfilled(ctx context.Context, id uuid.UUID, fulfiller uuid.UUID, payload string, payee uuid.UUID, deposit int64) error

	// SettleReclaimed transitions open -> reclaimed, credits the deposit
	// back to the requester and removes it from the escrow total.
	SettleReclaimed(ctx context.Context, id uuid.UUID, requester uuid.UUID, deposit int64) error

	// TotalEscrowed is the sum of deposits of all open requests.
	TotalEscrowed(ctx context.Context) (int64, error)

	Balance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Credit adds funds to an account, creating it if needed. Used by the
	// deposit on-ramp; the ledger itself never mints balance.
	Credit(ctx context.Context, userID uuid.UUID, amountNano int64) error
}
