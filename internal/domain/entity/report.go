package entity

import "time"

// ReportFields is the typed field record of a sales report
type ReportFields struct {
	ClientName     string `json:"client_name"`
	Phone          string `json:"phone"`
	SecondaryPhone string `json:"secondary_phone"`
	Product        string `json:"product"`
	Location       string `json:"location"`
	Amount         string `json:"amount"`
	ContractID     string `json:"contract_id"`
	Delivery       string `json:"delivery"`
	Note           string `json:"note"`
	SellerName     string `json:"seller_name"`
}

// HasSecondaryPhone reports whether a real secondary phone was supplied
func (f ReportFields) HasSecondaryPhone() bool {
	return f.SecondaryPhone != "" && f.SecondaryPhone != DefaultSecondaryPhone
}

// Report is a dispatched sales report
type Report struct {
	ID             int64        `json:"id"`
	UserTelegramID int64        `json:"user_telegram_id"`
	Fields         ReportFields `json:"fields"`
	Region         string       `json:"region"`
	IsCapital      bool         `json:"is_capital"`
	ImageFileID    string       `json:"image_file_id"`
	SubmissionDate time.Time    `json:"submission_date"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	Status         string       `json:"status"`
	ReviewerID     *int64       `json:"reviewer_id,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	ReviewChatID   int64        `json:"review_chat_id"`
	// ReviewMessageID is zero until the review message has been delivered
	ReviewMessageID int    `json:"review_message_id"`
	LedgerID        *int64 `json:"ledger_id,omitempty"`
}

// IsPending reports whether the report still awaits a reviewer decision
func (r *Report) IsPending() bool {
	return r.Status == StatusPending
}
