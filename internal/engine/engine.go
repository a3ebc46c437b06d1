// Package engine implements the ledger consistency core: posting transactions
// against asset balances, the membership and invitation state machine, and
// batch reordering.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// tokenBytes is the invitation token entropy (256 bits).
const tokenBytes = 32

// Engine runs every ledger operation inside a single storage transaction.
// It never retries; retryable failures are returned to the caller.
type Engine struct {
	storage  service.Storage
	notifier service.EmailNotifier
	now      func() time.Time
	newID    func() string
	newToken func() (string, error)
	config   Config
}

// Config holds configuration options for the engine.
type Config struct {
	DefaultCurrency string
	InvitationTTL   time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultCurrency: "USD",
		InvitationTTL:   7 * 24 * time.Hour,
	}
}

// New creates an engine with the default configuration.
func New(storage service.Storage, notifier service.EmailNotifier) *Engine {
	return NewWithConfig(storage, notifier, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration. Zero values in
// config fall back to the defaults. A nil notifier disables invitation mail.
func NewWithConfig(storage service.Storage, notifier service.EmailNotifier, config Config) *Engine {
	defaults := DefaultConfig()
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = defaults.DefaultCurrency
	}
	if config.InvitationTTL <= 0 {
		config.InvitationTTL = defaults.InvitationTTL
	}

	return &Engine{
		storage:  storage,
		notifier: notifier,
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
		newToken: generateToken,
	}
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// inTx runs fn inside one storage transaction, committing only when fn
// succeeds.
func (e *Engine) inTx(ctx context.Context, fn func(tx service.Transaction) error) error {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// requireMember loads the ledger and the acting user's membership. With
// write set, VIEWER members are refused.
func requireMember(ctx context.Context, q service.Queries, ledgerID, actor int64, write bool) (*model.Ledger, *model.LedgerMember, error) {
	ledger, err := q.GetLedger(ctx, ledgerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if ledger == nil {
		return nil, nil, common.NotFound(common.CodeLedgerNotFound, "ledger %d not found", ledgerID)
	}

	member, err := q.GetMember(ctx, ledgerID, actor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if member == nil {
		return nil, nil, common.Forbidden(common.CodeNotMember, "user %d is not a member of ledger %d", actor, ledgerID)
	}
	if write && !member.Role.CanWrite() {
		return nil, nil, common.Forbidden(common.CodeInsufficientRole, "role %s cannot modify ledger %d", member.Role, ledgerID)
	}
	return ledger, member, nil
}
