package storage

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

type fixture struct {
	user   *model.User
	ledger *model.Ledger
	cash   *model.Asset
	bank   *model.Asset
	food   *model.Category
	salary *model.Category
}

// createFixture seeds one user owning one ledger with two assets and two
// categories.
func createFixture(t *testing.T, store *SQLiteStorage) fixture {
	t.Helper()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Owner@Example.com", "Owner")
	require.NoError(t, err)

	ledger := &model.Ledger{Name: "Home", CurrencyCode: "USD", MonthStartDay: 1, OwnerID: user.ID}
	require.NoError(t, store.CreateLedger(ctx, ledger))
	_, err = store.AddMember(ctx, ledger.ID, user.ID, model.RoleOwner)
	require.NoError(t, err)

	cash := &model.Asset{LedgerID: ledger.ID, Name: "Wallet", Kind: model.AssetKindCash, InitialBalance: 10000, IncludeInNetWorth: true}
	require.NoError(t, store.CreateAsset(ctx, cash))
	bank := &model.Asset{LedgerID: ledger.ID, Name: "Checking", Kind: model.AssetKindBank, InitialBalance: 50000, IncludeInNetWorth: true}
	require.NoError(t, store.CreateAsset(ctx, bank))

	food := &model.Category{LedgerID: ledger.ID, Name: "Food", Type: model.CategoryTypeExpense}
	require.NoError(t, store.CreateCategory(ctx, food))
	salary := &model.Category{LedgerID: ledger.ID, Name: "Salary", Type: model.CategoryTypeIncome}
	require.NoError(t, store.CreateCategory(ctx, salary))

	return fixture{user: user, ledger: ledger, cash: cash, bank: bank, food: food, salary: salary}
}

func TestSQLiteStorage_Users(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "  Alice@Example.COM ", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	found, err := store.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Nil(t, found.MainLedgerID)

	_, err = store.CreateUser(ctx, "alice@example.com", "Other Alice")
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	missing, err := store.GetUserByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStorage_LedgersAndMembers(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	require.NoError(t, store.SetMainLedger(ctx, f.user.ID, f.ledger.ID))
	user, err := store.GetUserByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, user.MainLedgerID)
	assert.Equal(t, f.ledger.ID, *user.MainLedgerID)

	guest, err := store.CreateUser(ctx, "guest@example.com", "Guest")
	require.NoError(t, err)

	created, err := store.AddMember(ctx, f.ledger.ID, guest.ID, model.RoleEditor)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.AddMember(ctx, f.ledger.ID, guest.ID, model.RoleViewer)
	require.NoError(t, err)
	assert.False(t, created, "second insert must be ignored")

	member, err := store.GetMember(ctx, f.ledger.ID, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.RoleEditor, member.Role)

	byEmail, err := store.FindMemberByEmail(ctx, f.ledger.ID, "GUEST@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, guest.ID, byEmail.UserID)

	members, err := store.ListMembers(ctx, f.ledger.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, model.RoleOwner, members[0].Role)

	ledgers, err := store.ListLedgersForUser(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "Home", ledgers[0].Name)
}

func TestSQLiteStorage_Invitations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)
	now := time.Now()

	inv := &model.LedgerInvitation{
		LedgerID:  f.ledger.ID,
		InvitedBy: f.user.ID,
		Email:     "Guest@Example.com",
		Role:      model.RoleEditor,
		Token:     "token-1",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.CreateInvitation(ctx, inv))
	assert.NotZero(t, inv.ID)
	assert.Equal(t, model.InvitationPending, inv.Status)

	expired := &model.LedgerInvitation{
		LedgerID:  f.ledger.ID,
		InvitedBy: f.user.ID,
		Email:     "guest@example.com",
		Role:      model.RoleViewer,
		Token:     "token-2",
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, store.CreateInvitation(ctx, expired))

	pending, err := store.ListPendingInvitationsForEmail(ctx, "guest@example.com", now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inv.ID, pending[0].ID)

	byToken, err := store.GetInvitationByToken(ctx, "token-1")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Nil(t, byToken.RespondedAt)

	changed, err := store.TransitionInvitation(ctx, inv.ID, model.InvitationAccepted, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.TransitionInvitation(ctx, inv.ID, model.InvitationDeclined, now)
	require.NoError(t, err)
	assert.False(t, changed, "terminal invitations never transition again")

	reloaded, err := store.GetInvitationByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, reloaded.Status)
	require.NotNil(t, reloaded.RespondedAt)

	_, err = store.TransitionInvitation(ctx, expired.ID, model.InvitationPending, now)
	assert.ErrorIs(t, err, ErrInvalidInvite)

	require.NoError(t, store.DeleteInvitation(ctx, expired.ID))
	gone, err := store.GetInvitationByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	dup := *inv
	dup.ID = 0
	assert.ErrorIs(t, store.CreateInvitation(ctx, &dup), common.ErrDuplicateEntry)
}

func TestSQLiteStorage_AssetsAndGroups(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	group := &model.AssetGroup{LedgerID: f.ledger.ID, Name: "Everyday", Type: model.AssetGroupTypeAsset}
	require.NoError(t, store.CreateAssetGroup(ctx, group))
	assert.Equal(t, 1, group.SortOrder)

	second := &model.AssetGroup{LedgerID: f.ledger.ID, Name: "Cards", Type: model.AssetGroupTypeDebt}
	require.NoError(t, store.CreateAssetGroup(ctx, second))
	assert.Equal(t, 2, second.SortOrder)

	f.cash.GroupID = &group.ID
	f.cash.Name = "Pocket"
	f.cash.CurrentBalance = 1 // ignored
	require.NoError(t, store.UpdateAsset(ctx, f.cash))

	got, err := store.GetAsset(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pocket", got.Name)
	assert.Equal(t, int64(10000), got.CurrentBalance)
	require.NotNil(t, got.GroupID)

	require.NoError(t, store.AdjustAssetBalance(ctx, f.cash.ID, -2500))
	got, err = store.GetAsset(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), got.CurrentBalance)
	assert.Equal(t, int64(10000), got.InitialBalance)

	err = store.AdjustAssetBalance(ctx, 9999, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	card := &model.Asset{
		LedgerID: f.ledger.ID,
		Name:     "Visa",
		Kind:     model.AssetKindCreditCard,
		Billing:  &model.CardBilling{BillingDay: 15, PaymentDay: 25, PaymentAssetID: &f.bank.ID},
	}
	require.NoError(t, store.CreateAsset(ctx, card))
	got, err = store.GetAsset(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Billing)
	assert.Equal(t, 15, got.Billing.BillingDay)
	require.NotNil(t, got.Billing.PaymentAssetID)
	assert.Equal(t, f.bank.ID, *got.Billing.PaymentAssetID)

	require.NoError(t, store.DeleteAssetGroup(ctx, group.ID))
	got, err = store.GetAsset(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID, "assets are detached when their group goes away")

	ok, err := store.UpdateAssetOrder(ctx, f.ledger.ID, service.OrderUpdate{ID: f.bank.ID, Order: 7})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdateAssetOrder(ctx, f.ledger.ID+1, service.OrderUpdate{ID: f.bank.ID, Order: 8})
	require.NoError(t, err)
	assert.False(t, ok, "rows outside the ledger are not touched")
}

func TestSQLiteStorage_AdjustAssetBalanceRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	low := &model.Asset{LedgerID: f.ledger.ID, Name: "Mortgage", Kind: model.AssetKindLoan, InitialBalance: math.MinInt64 + 10}
	require.NoError(t, store.CreateAsset(ctx, low))

	tests := []struct {
		name    string
		assetID int64
		delta   int64
		want    int64
		wantErr bool
	}{
		{name: "overflow above max", assetID: f.cash.ID, delta: math.MaxInt64, want: 10000, wantErr: true},
		{name: "exactly max", assetID: f.cash.ID, delta: math.MaxInt64 - 10000, want: math.MaxInt64},
		{name: "one past max", assetID: f.cash.ID, delta: 1, want: math.MaxInt64, wantErr: true},
		{name: "overflow below min", assetID: low.ID, delta: -11, want: math.MinInt64 + 10, wantErr: true},
		{name: "exactly min", assetID: low.ID, delta: -10, want: math.MinInt64},
		{name: "back from min", assetID: low.ID, delta: math.MaxInt64, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.AdjustAssetBalance(ctx, tt.assetID, tt.delta)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrBalanceOutOfRange)
			} else {
				require.NoError(t, err)
			}

			got, err := store.GetAsset(ctx, tt.assetID)
			require.NoError(t, err, "balance must stay an integer")
			assert.Equal(t, tt.want, got.CurrentBalance)
		})
	}

	err := store.AdjustAssetBalance(ctx, 9999, math.MaxInt64)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteStorage_Categories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	child := &model.Category{LedgerID: f.ledger.ID, Name: "Groceries", Type: model.CategoryTypeExpense, ParentID: &f.food.ID}
	require.NoError(t, store.CreateCategory(ctx, child))
	assert.Equal(t, 1, child.SortOrder, "ordering is scoped by parent")

	count, err := store.CountChildCategories(ctx, f.food.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	child.Name = "Supermarket"
	child.ParentID = nil
	require.NoError(t, store.UpdateCategory(ctx, child))

	got, err := store.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Supermarket", got.Name)
	assert.Nil(t, got.ParentID)

	cats, err := store.ListCategories(ctx, f.ledger.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 3)

	txn := &model.Transaction{
		ID:        "t-1",
		LedgerID:  f.ledger.ID,
		Type:      model.TransactionTypeExpense,
		Amount:    500,
		Date:      time.Now(),
		AssetID:   f.cash.ID,
		CreatedBy: f.user.ID,
		CreatedAt: time.Now(),
		Splits:    []model.TransactionSplit{{CategoryID: child.ID, Amount: 500}},
	}
	require.NoError(t, store.InsertTransaction(ctx, txn))

	assert.ErrorIs(t, store.DeleteCategory(ctx, child.ID), common.ErrInUse)
	require.NoError(t, store.DeleteCategory(ctx, f.salary.ID))
}

func TestSQLiteStorage_Transactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	expense := &model.Transaction{
		ID:         "txn-expense",
		LedgerID:   f.ledger.ID,
		Type:       model.TransactionTypeExpense,
		Amount:     1500,
		Date:       day,
		AssetID:    f.cash.ID,
		Memo:       "lunch",
		ExternalID: "FIT-1",
		CreatedBy:  f.user.ID,
		CreatedAt:  day,
		Tags:       []string{"work", "work", " "},
		Splits: []model.TransactionSplit{
			{CategoryID: f.food.ID, Amount: 1000},
			{CategoryID: f.food.ID, Amount: 500, Memo: "tip"},
		},
	}
	require.NoError(t, store.InsertTransaction(ctx, expense))
	assert.NotZero(t, expense.Splits[0].ID)

	transfer := &model.Transaction{
		ID:             "txn-transfer",
		LedgerID:       f.ledger.ID,
		Type:           model.TransactionTypeTransfer,
		Amount:         2000,
		Date:           day.Add(24 * time.Hour),
		AssetID:        f.bank.ID,
		CounterAssetID: &f.cash.ID,
		CreatedBy:      f.user.ID,
		CreatedAt:      day,
	}
	require.NoError(t, store.InsertTransaction(ctx, transfer))

	got, err := store.GetTransaction(ctx, expense.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "FIT-1", got.ExternalID)
	assert.Equal(t, []string{"work"}, got.Tags)
	require.Len(t, got.Splits, 2)
	assert.Equal(t, int64(1500), got.SplitTotal())

	exists, err := store.ExternalIDExists(ctx, f.cash.ID, "FIT-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.ExternalIDExists(ctx, f.bank.ID, "FIT-1")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := *expense
	dup.ID = "txn-dup"
	dup.Splits = nil
	assert.ErrorIs(t, store.InsertTransaction(ctx, &dup), common.ErrDuplicateEntry)

	list, err := store.ListTransactions(ctx, service.TransactionFilter{LedgerID: f.ledger.ID, AssetID: &f.cash.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, transfer.ID, list[0].ID, "newest first")
	assert.Len(t, list[1].Splits, 2)

	start := day.Add(12 * time.Hour)
	list, err = store.ListTransactions(ctx, service.TransactionFilter{LedgerID: f.ledger.ID, StartDate: &start})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = store.ListTransactions(ctx, service.TransactionFilter{LedgerID: f.ledger.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, expense.ID, list[0].ID)

	cashSum, err := store.SumAssetContributions(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1500+2000), cashSum)

	bankSum, err := store.SumAssetContributions(ctx, f.bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-2000), bankSum)

	expense.Amount = 800
	expense.Tags = []string{"personal"}
	expense.Splits = []model.TransactionSplit{{CategoryID: f.food.ID, Amount: 800}}
	require.NoError(t, store.ReplaceTransaction(ctx, expense))

	got, err = store.GetTransaction(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.Amount)
	assert.Equal(t, []string{"personal"}, got.Tags)
	require.Len(t, got.Splits, 1)

	require.NoError(t, store.DeleteTransaction(ctx, expense.ID))
	assert.ErrorIs(t, store.DeleteTransaction(ctx, expense.ID), sql.ErrNoRows)

	got, err = store.GetTransaction(ctx, expense.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	t.Run("rollback discards balance changes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.AdjustAssetBalance(ctx, f.cash.ID, -100))
		require.NoError(t, tx.Rollback())

		got, err := store.GetAsset(ctx, f.cash.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), got.CurrentBalance)
	})

	t.Run("commit persists balance changes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.AdjustAssetBalance(ctx, f.cash.ID, -100))
		require.NoError(t, tx.AdjustAssetBalance(ctx, f.bank.ID, 100))
		require.NoError(t, tx.Commit())

		cash, err := store.GetAsset(ctx, f.cash.ID)
		require.NoError(t, err)
		bank, err := store.GetAsset(ctx, f.bank.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9900), cash.CurrentBalance)
		assert.Equal(t, int64(50100), bank.CurrentBalance)
	})
}

func TestSQLiteStorage_ConcurrentAdjustments(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	f := createFixture(t, store)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := store.BeginTx(ctx)
			if err != nil {
				errs <- err
				return
			}
			if err := tx.AdjustAssetBalance(ctx, f.cash.ID, -10); err != nil {
				_ = tx.Rollback()
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.GetAsset(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000-workers*10), got.CurrentBalance)
}
