package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/service"
)

var (
	_ service.EmailNotifier = LogNotifier{}
	_ service.EmailNotifier = (*Recorder)(nil)
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()

	ok := NewRecorder(nil)
	require.NoError(t, ok.SendLedgerInvitationEmail(ctx, "a@example.com", "Ann", "Home", "tok"))
	msgs := ok.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Message{ToEmail: "a@example.com", InviterName: "Ann", LedgerName: "Home", Token: "tok"}, msgs[0])

	boom := errors.New("smtp down")
	failing := NewRecorder(boom)
	assert.ErrorIs(t, failing.SendLedgerInvitationEmail(ctx, "b@example.com", "Ann", "Home", "tok"), boom)
	assert.Len(t, failing.Messages(), 1)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.SendLedgerInvitationEmail(context.Background(), "a@example.com", "Ann", "Home", "secret"))
}
