package entity

import (
	"time"

	"github.com/garyjia/sales-report-bot/internal/domain/workflow"
)

// Session is the ephemeral per-user state of a submission dialogue
type Session struct {
	UserID      int64          `json:"user_id"`
	ChatID      int64          `json:"chat_id"`
	Step        workflow.State `json:"step"`
	Region      string         `json:"region"`
	IsCapital   bool           `json:"is_capital"`
	Fields      ReportFields   `json:"fields"`
	ImageFileID string         `json:"image_file_id"`

	// Message ids kept for dialogue cleanup
	PromptMessageID  int `json:"prompt_message_id"`
	ReplyMessageID   int `json:"reply_message_id"`
	PreviewMessageID int `json:"preview_message_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session positioned at region selection
func NewSession(userID, chatID int64, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		ChatID:    chatID,
		Step:      workflow.StateRegionSelect,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
