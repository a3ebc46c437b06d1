// Package notify provides EmailNotifier implementations.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// LogNotifier records invitation deliveries in the structured log instead of
// sending mail. The token is never written to the log.
type LogNotifier struct{}

// SendLedgerInvitationEmail logs the delivery.
func (LogNotifier) SendLedgerInvitationEmail(_ context.Context, toEmail, inviterDisplayName, ledgerName, _ string) error {
	slog.Info("ledger invitation ready",
		"to", toEmail,
		"inviter", inviterDisplayName,
		"ledger", ledgerName)
	return nil
}

// Message is one delivery captured by a Recorder.
type Message struct {
	ToEmail     string
	InviterName string
	LedgerName  string
	Token       string
}

// Recorder captures deliveries in memory and can be told to fail.
type Recorder struct {
	err      error
	messages []Message
	mu       sync.Mutex
}

// NewRecorder creates a recorder that fails every send with err when err is
// non-nil. Failed sends are still captured.
func NewRecorder(err error) *Recorder {
	return &Recorder{err: err}
}

// SendLedgerInvitationEmail captures the delivery.
func (r *Recorder) SendLedgerInvitationEmail(_ context.Context, toEmail, inviterDisplayName, ledgerName, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		ToEmail:     toEmail,
		InviterName: inviterDisplayName,
		LedgerName:  ledgerName,
		Token:       token,
	})
	return r.err
}

// Messages returns a copy of every captured delivery.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
