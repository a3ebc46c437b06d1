package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/ledger/ledger.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 7*24*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Empty(t, cfg.UserEmail)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set(KeyDatabasePath, ":memory:")
	v.Set(KeyLogLevel, "DEBUG")
	v.Set(KeyLogFormat, "json")
	v.Set(KeyInvitationTTL, "48h")
	v.Set(KeyDefaultCurrency, "krw")
	v.Set(KeyUserEmail, " owner@example.com ")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 48*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, "KRW", cfg.DefaultCurrency)
	assert.Equal(t, "owner@example.com", cfg.UserEmail)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "log level", key: KeyLogLevel, value: "verbose"},
		{name: "log format", key: KeyLogFormat, value: "xml"},
		{name: "ttl", key: KeyInvitationTTL, value: "-1h"},
		{name: "currency", key: KeyDefaultCurrency, value: "EURO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LEDGER_TEST_DIR", "/srv/ledger")

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: ":memory:", want: ":memory:"},
		{input: "~", want: home},
		{input: "~/data/ledger.db", want: filepath.Join(home, "data/ledger.db")},
		{input: "$LEDGER_TEST_DIR/ledger.db", want: "/srv/ledger/ledger.db"},
		{input: "/abs/ledger.db", want: "/abs/ledger.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}
