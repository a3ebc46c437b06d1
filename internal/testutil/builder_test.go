package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
	"github.com/Veraticus/shared-ledger/internal/testutil"
)

func TestLedgerBuilder_Build(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewLedgerBuilder(t, db.Storage).
		WithName("Shared").
		WithMember("viewer@example.com", "Vi", model.RoleViewer).
		WithAsset("Cash", model.AssetKindCash, 10000).
		WithCategory("Food", model.CategoryTypeExpense).
		WithSubcategory("Groceries", "Food", model.CategoryTypeExpense).
		Build()

	assert.Equal(t, "Shared", f.Ledger.Name)
	assert.Equal(t, int64(10000), db.MustAsset(f.Asset("Cash").ID).CurrentBalance)
	require.NotNil(t, f.Category("Groceries").ParentID)
	assert.Equal(t, f.Category("Food").ID, *f.Category("Groceries").ParentID)

	ctx := context.Background()
	member, err := db.Storage.GetMember(ctx, f.Ledger.ID, f.User("viewer@example.com").ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.RoleViewer, member.Role)

	assert.Equal(t, 2, db.CountRows("ledger_members"))
}

func TestTestDB_WithTransactionRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewLedgerBuilder(t, db.Storage).
		WithAsset("Cash", model.AssetKindCash, 500).
		Build()

	err := db.WithTransaction(func(tx service.Transaction) error {
		return tx.AdjustAssetBalance(context.Background(), f.Asset("Cash").ID, 100)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), db.MustAsset(f.Asset("Cash").ID).CurrentBalance)
}
