package dto

type IssueTokenRequest struct {
	UserID string `json:"user_id"`
}

type CreateRequestRequest struct {
	Content      string `json:"content"`
	ContactInfo  string `json:"contact_info"`
	DeadlineUnix int64  `json:"deadline_unix"`
	DepositNano  int64  `json:"deposit_nano"`
}

type FulfillRequestRequest struct {
	Fulfillment string `json:"fulfillment"`
}
