package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/engine"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/notify"
	"github.com/Veraticus/shared-ledger/internal/service"
	"github.com/Veraticus/shared-ledger/internal/storage"
)

const dateLayout = "2006-01-02"

var retryOptions = service.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2,
}

// session is an open database and engine for one command run.
type session struct {
	store  *storage.SQLiteStorage
	engine *engine.Engine
	user   *model.User
}

// openStorage opens and migrates the configured database.
func (a *app) openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// run opens a session, resolves the acting user when needAuth is set, and
// runs fn.
func (a *app) run(cmd *cobra.Command, needAuth bool, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	s := &session{
		store: store,
		engine: engine.NewWithConfig(store, notify.LogNotifier{}, engine.Config{
			DefaultCurrency: a.cfg.DefaultCurrency,
			InvitationTTL:   a.cfg.InvitationTTL,
		}),
	}

	if needAuth {
		if s.user, err = a.actingUser(ctx, store); err != nil {
			return err
		}
	}
	return fn(ctx, s)
}

func (a *app) actingUser(ctx context.Context, store service.Storage) (*model.User, error) {
	email := a.cfg.UserEmail
	if email == "" {
		return nil, fmt.Errorf("%w: set --as or %s", common.ErrMissingConfig, "user.email")
	}
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no user registered as %s; run 'ledger user register' first", email)
	}
	return user, nil
}

// retry runs a write, repeating it while the database reports contention.
func retry(ctx context.Context, fn func() error) error {
	return common.WithRetry(ctx, fn, retryOptions)
}

// addLedgerFlag registers --ledger on cmd.
func addLedgerFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("ledger", 0, "ledger id (default: your main ledger)")
}

// ledger resolves --ledger, falling back to the acting user's main ledger.
func (s *session) ledger(ctx context.Context, cmd *cobra.Command) (*model.Ledger, error) {
	id, _ := cmd.Flags().GetInt64("ledger")
	if id == 0 {
		if s.user.MainLedgerID == nil {
			return nil, fmt.Errorf("no main ledger; pass --ledger")
		}
		id = *s.user.MainLedgerID
	}

	ledger, err := s.store.GetLedger(ctx, id)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, common.NotFound(common.CodeLedgerNotFound, "ledger %d not found", id)
	}
	return ledger, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

// optionalID reads an int64 flag, returning nil when it was not given.
func optionalID(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	id, _ := cmd.Flags().GetInt64(name)
	return &id
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// parseOrderPairs reads "id=order" arguments.
func parseOrderPairs(args []string) ([]service.OrderUpdate, error) {
	items := make([]service.OrderUpdate, 0, len(args))
	for _, arg := range args {
		idText, orderText, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid item %q, want id=order", arg)
		}
		id, err := parseID(idText, "item")
		if err != nil {
			return nil, err
		}
		order, err := strconv.Atoi(strings.TrimSpace(orderText))
		if err != nil {
			return nil, fmt.Errorf("invalid order in %q", arg)
		}
		items = append(items, service.OrderUpdate{ID: id, Order: order})
	}
	return items, nil
}
