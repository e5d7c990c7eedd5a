package models

import (
	"time"

	"github.com/google/uuid"
)

// Account holds a user's spendable balance in nanoton. Deposits are debited
// from here when a request is created and credited back on reclamation.
type Account struct {
	UserID      uuid.UUID `json:"user_id"`
	BalanceNano int64     `json:"balance_nano"`
	UpdatedAt   time.Time `json:"updated_at"`
}
