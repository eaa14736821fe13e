package entity

import "time"

// User is a registered sales agent
type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	FullName     string    `json:"full_name"`
	RegisteredAt time.Time `json:"registered_at"`
	IsBlocked    bool      `json:"is_blocked"`
	GroupChatID  *int64    `json:"group_chat_id,omitempty"`
}

// Group is a review group chat that receives relayed reports
type Group struct {
	ID       int64  `json:"id"`
	ChatID   int64  `json:"chat_id"`
	Name     string `json:"name"`
	ThreadID *int   `json:"thread_id,omitempty"`
	// LedgerID binds the group to the spreadsheet its reports are mirrored into
	LedgerID *int64    `json:"ledger_id,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// LedgerRegistration points at an external spreadsheet ledger
type LedgerRegistration struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	SpreadsheetID string    `json:"spreadsheet_id"`
	WorksheetName string    `json:"worksheet_name"`
	IsActive      bool      `json:"is_active"`
	AddedAt       time.Time `json:"added_at"`
}
