package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type TokenResponse struct {
	Token string   `json:"token"`
	Roles []string `json:"roles"`
}

type BalanceResponse struct {
	UserID      string `json:"user_id"`
	BalanceNano int64  `json:"balance_nano"`
}

type DepositInfoResponse struct {
	WalletAddress string `json:"wallet_address"`
	Memo          string `json:"memo"`
	Network       string `json:"network"`
}

type LedgerStatsResponse struct {
	RequestCount int64 `json:"request_count"`
	EscrowedNano int64 `json:"escrowed_nano"`
}
