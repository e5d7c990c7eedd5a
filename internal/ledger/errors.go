package ledger

import "errors"

// Every precondition failure maps to exactly one of these sentinels so
// callers can branch on the kind, never on message text. A failed operation
// leaves the ledger untouched.
var (
	ErrNotFound          = errors.New("request not found")
	ErrInvalidState      = errors.New("request is not open")
	ErrUnauthorized      = errors.New("caller is not allowed to perform this action")
	ErrNotExpired        = errors.New("cannot reclaim request not expired")
	ErrAlreadyFulfilled  = errors.New("cannot reclaim request had been fulfilled")
	ErrAlreadyReclaimed  = errors.New("deposit has already been reclaimed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("account balance too low to fund deposit")
)
