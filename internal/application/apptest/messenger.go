// Package apptest provides in-memory collaborators for application-layer tests.
package apptest

import (
	"context"
	"sync"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

// Sent is a message recorded by Messenger
type Sent struct {
	Ref      port.MessageRef
	ThreadID int
	Text     string
	PhotoID  string
	Markup   *port.Markup
}

// Edit is a recorded text or caption edit
type Edit struct {
	Ref    port.MessageRef
	Text   string
	Markup *port.Markup
}

// Answer is a recorded callback answer
type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Messenger is a recording port.Messenger. Message ids start at 100.
type Messenger struct {
	mu sync.Mutex

	Sent    []Sent
	Edits   []Edit
	Deleted []port.MessageRef
	Answers []Answer

	// FailSend, FailEdit and FailDelete make the matching calls fail
	FailSend   error
	FailEdit   error
	FailDelete error

	nextID int
}

// NewMessenger creates an empty recording messenger
func NewMessenger() *Messenger {
	return &Messenger{nextID: 100}
}

func (m *Messenger) send(chatID int64, threadID int, text, photoID string, markup *port.Markup) (port.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSend != nil {
		return port.MessageRef{}, m.FailSend
	}
	m.nextID++
	ref := port.MessageRef{ChatID: chatID, MessageID: m.nextID}
	m.Sent = append(m.Sent, Sent{Ref: ref, ThreadID: threadID, Text: text, PhotoID: photoID, Markup: markup})
	return ref, nil
}

func (m *Messenger) SendText(_ context.Context, chatID int64, threadID int, text string, markup *port.Markup) (port.MessageRef, error) {
	return m.send(chatID, threadID, text, "", markup)
}

func (m *Messenger) SendPhoto(_ context.Context, chatID int64, threadID int, photoID, caption string, markup *port.Markup) (port.MessageRef, error) {
	return m.send(chatID, threadID, caption, photoID, markup)
}

func (m *Messenger) edit(ref port.MessageRef, text string, markup *port.Markup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailEdit != nil {
		return m.FailEdit
	}
	m.Edits = append(m.Edits, Edit{Ref: ref, Text: text, Markup: markup})
	return nil
}

func (m *Messenger) EditText(_ context.Context, ref port.MessageRef, text string, markup *port.Markup) error {
	return m.edit(ref, text, markup)
}

func (m *Messenger) EditCaption(_ context.Context, ref port.MessageRef, caption string, markup *port.Markup) error {
	return m.edit(ref, caption, markup)
}

func (m *Messenger) DeleteMessage(_ context.Context, ref port.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDelete != nil {
		return m.FailDelete
	}
	m.Deleted = append(m.Deleted, ref)
	return nil
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Answers = append(m.Answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

// LastSent returns the most recent message, or the zero value
func (m *Messenger) LastSent() Sent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return Sent{}
	}
	return m.Sent[len(m.Sent)-1]
}

// LastEdit returns the most recent edit, or the zero value
func (m *Messenger) LastEdit() Edit {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Edits) == 0 {
		return Edit{}
	}
	return m.Edits[len(m.Edits)-1]
}

// LastAnswer returns the most recent callback answer, or the zero value
func (m *Messenger) LastAnswer() Answer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Answers) == 0 {
		return Answer{}
	}
	return m.Answers[len(m.Answers)-1]
}

// WasDeleted reports whether the message was deleted
func (m *Messenger) WasDeleted(ref port.MessageRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.Deleted {
		if d == ref {
			return true
		}
	}
	return false
}

// Logger discards everything
type Logger struct{}

func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Debug(string, ...interface{}) {}
func (Logger) Error(string, ...interface{}) {}
