package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerInvitation_IsExpired(t *testing.T) {
	expires := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	inv := LedgerInvitation{ExpiresAt: expires}

	assert.False(t, inv.IsExpired(expires.Add(-time.Nanosecond)))
	assert.True(t, inv.IsExpired(expires))
	assert.True(t, inv.IsExpired(expires.Add(time.Second)))
}
