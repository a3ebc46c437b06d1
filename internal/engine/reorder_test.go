package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

func TestReorderAssetList(t *testing.T) {
	env := newTestEnv(t)
	cash := env.f.Asset("Cash").ID
	bank := env.f.Asset("Bank").ID

	assets, err := env.engine.ReorderAssetList(context.Background(), env.f.Owner.ID, env.f.Ledger.ID, []service.OrderUpdate{
		{ID: cash, Order: 7},
		{ID: bank, Order: 1},
	})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "Bank", assets[0].Name)
	assert.Equal(t, 1, assets[0].SortOrder)
	assert.Equal(t, 7, assets[1].SortOrder, "gaps are kept")
}

func TestReorder_DuplicateOrdinalsStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	food := env.f.Category("Food").ID
	rent := env.f.Category("Rent").ID

	categories, err := env.engine.ReorderCategoryList(ctx, env.f.Owner.ID, env.f.Ledger.ID, []service.OrderUpdate{
		{ID: food, Order: 3},
		{ID: rent, Order: 3},
	})
	require.NoError(t, err)

	orders := map[string]int{}
	for _, c := range categories {
		orders[c.Name] = c.SortOrder
	}
	assert.Equal(t, 3, orders["Food"])
	assert.Equal(t, 3, orders["Rent"])
}

func TestReorderAssetGroupList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	savings, err := env.engine.CreateAssetGroup(ctx, env.f.Owner.ID, env.f.Ledger.ID, "Savings", model.AssetGroupTypeAsset)
	require.NoError(t, err)
	cards, err := env.engine.CreateAssetGroup(ctx, env.f.Owner.ID, env.f.Ledger.ID, "Cards", model.AssetGroupTypeDebt)
	require.NoError(t, err)

	groups, err := env.engine.ReorderAssetGroupList(ctx, env.f.Owner.ID, env.f.Ledger.ID, []service.OrderUpdate{
		{ID: cards.ID, Order: 0},
		{ID: savings.ID, Order: 10},
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Cards", groups[0].Name)
	assert.Equal(t, "Savings", groups[1].Name)
}

func TestReorder_UnknownItemAbortsBatch(t *testing.T) {
	env := newTestEnv(t)
	foreign := env.foreignLedger(t)
	cash := env.f.Asset("Cash").ID
	before := env.db.MustAsset(cash).SortOrder

	tests := []struct {
		name string
		id   int64
	}{
		{name: "missing id", id: 9999},
		{name: "id from another ledger", id: foreign.Asset("Foreign").ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.engine.Reorder(context.Background(), env.f.Owner.ID, ReorderAssets, env.f.Ledger.ID, []service.OrderUpdate{
				{ID: cash, Order: before + 40},
				{ID: tt.id, Order: 1},
			})
			requireCode(t, err, common.KindNotFound, common.CodeReorderItemNotFound)
			assert.Equal(t, before, env.db.MustAsset(cash).SortOrder)
		})
	}
}

func TestReorder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	item := []service.OrderUpdate{{ID: env.f.Asset("Cash").ID, Order: 1}}

	err := env.engine.Reorder(context.Background(), env.f.User(viewerEmail).ID, ReorderAssets, env.f.Ledger.ID, item)
	requireCode(t, err, common.KindForbidden, common.CodeInsufficientRole)

	err = env.engine.Reorder(context.Background(), env.f.Owner.ID, "ledger", env.f.Ledger.ID, item)
	requireCode(t, err, common.KindValidation, common.CodeInvalidEnum)
}
