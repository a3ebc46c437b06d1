package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
)

func TestCreateAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.engine.CreateAssetGroup(ctx, env.f.Owner.ID, env.f.Ledger.ID, "Cards", model.AssetGroupTypeDebt)
	require.NoError(t, err)

	bank := env.f.Asset("Bank").ID
	card, err := env.engine.CreateAsset(ctx, env.f.User(editorEmail).ID, env.f.Ledger.ID, AssetInput{
		GroupID:        &group.ID,
		Name:           " Visa ",
		Kind:           model.AssetKindCreditCard,
		InitialBalance: -12000,
		Billing:        &model.CardBilling{BillingDay: 25, PaymentDay: 14, PaymentAssetID: &bank},
	})
	require.NoError(t, err)
	assert.Equal(t, "Visa", card.Name)

	stored := env.db.MustAsset(card.ID)
	assert.Equal(t, int64(-12000), stored.InitialBalance)
	assert.Equal(t, int64(-12000), stored.CurrentBalance)
	require.NotNil(t, stored.Billing)
	assert.Equal(t, 25, stored.Billing.BillingDay)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, group.ID, *stored.GroupID)
}

func TestCreateAsset_Rejections(t *testing.T) {
	env := newTestEnv(t)
	foreign := env.foreignLedger(t)
	ctx := context.Background()

	foreignGroup, err := env.engine.CreateAssetGroup(ctx, foreign.Owner.ID, foreign.Ledger.ID, "Theirs", model.AssetGroupTypeAsset)
	require.NoError(t, err)

	tests := []struct {
		in    AssetInput
		actor func() int64
		name  string
		kind  common.Kind
		code  common.Code
	}{
		{name: "no name", in: AssetInput{Kind: model.AssetKindCash},
			kind: common.KindValidation, code: common.CodeMissingField},
		{name: "unknown kind", in: AssetInput{Name: "Jar", Kind: "JAR"},
			kind: common.KindValidation, code: common.CodeInvalidEnum},
		{name: "billing day out of range", in: AssetInput{Name: "Card", Kind: model.AssetKindCreditCard,
			Billing: &model.CardBilling{BillingDay: 32, PaymentDay: 1}},
			kind: common.KindValidation, code: common.CodeInvalidBillingDay},
		{name: "group in another ledger", in: AssetInput{Name: "Jar", Kind: model.AssetKindCash, GroupID: &foreignGroup.ID},
			kind: common.KindScopeMismatch, code: common.CodeGroupNotInLedger},
		{name: "missing group", in: AssetInput{Name: "Jar", Kind: model.AssetKindCash, GroupID: ptr(int64(9999))},
			kind: common.KindNotFound, code: common.CodeGroupNotFound},
		{name: "payment asset in another ledger", in: AssetInput{Name: "Card", Kind: model.AssetKindCreditCard,
			Billing: &model.CardBilling{BillingDay: 1, PaymentDay: 15, PaymentAssetID: ptr(foreign.Asset("Foreign").ID)}},
			kind: common.KindScopeMismatch, code: common.CodeAssetNotInLedger},
		{name: "viewer", in: AssetInput{Name: "Jar", Kind: model.AssetKindCash},
			actor: func() int64 { return env.f.User(viewerEmail).ID },
			kind:  common.KindForbidden, code: common.CodeInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := env.f.Owner.ID
			if tt.actor != nil {
				actor = tt.actor()
			}
			_, err := env.engine.CreateAsset(ctx, actor, env.f.Ledger.ID, tt.in)
			requireCode(t, err, tt.kind, tt.code)

			assets, err := env.engine.ListAssets(ctx, env.f.Owner.ID, env.f.Ledger.ID)
			require.NoError(t, err)
			assert.Len(t, assets, 2)
		})
	}
}

func TestUpdateAsset_LeavesBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cash := env.f.Asset("Cash").ID

	_, err := env.engine.PostTransaction(ctx, env.f.Owner.ID, env.f.Ledger.ID, PostInput{
		Type:    model.TransactionTypeExpense,
		Amount:  400,
		Date:    postDate,
		AssetID: cash,
	})
	require.NoError(t, err)

	updated, err := env.engine.UpdateAsset(ctx, env.f.Owner.ID, cash, AssetInput{
		Name:           "Wallet",
		Kind:           model.AssetKindCash,
		InitialBalance: 999999,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wallet", updated.Name)

	stored := env.db.MustAsset(cash)
	assert.Equal(t, int64(10000), stored.InitialBalance)
	assert.Equal(t, int64(9600), stored.CurrentBalance)
	assert.False(t, stored.IncludeInNetWorth)

	_, err = env.engine.UpdateAsset(ctx, env.f.Owner.ID, 9999, AssetInput{Name: "X", Kind: model.AssetKindCash})
	requireCode(t, err, common.KindNotFound, common.CodeAssetNotFound)
}

func TestDeleteAssetGroup_DetachesAssets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.engine.CreateAssetGroup(ctx, env.f.Owner.ID, env.f.Ledger.ID, "Everyday", model.AssetGroupTypeAsset)
	require.NoError(t, err)

	cash := env.f.Asset("Cash").ID
	_, err = env.engine.UpdateAsset(ctx, env.f.Owner.ID, cash, AssetInput{
		GroupID:           &group.ID,
		Name:              "Cash",
		Kind:              model.AssetKindCash,
		IncludeInNetWorth: true,
	})
	require.NoError(t, err)

	err = env.engine.DeleteAssetGroup(ctx, env.f.User(viewerEmail).ID, group.ID)
	requireCode(t, err, common.KindForbidden, common.CodeInsufficientRole)

	require.NoError(t, env.engine.DeleteAssetGroup(ctx, env.f.Owner.ID, group.ID))

	stored := env.db.MustAsset(cash)
	assert.Nil(t, stored.GroupID)
	assert.Equal(t, int64(10000), stored.CurrentBalance)

	groups, err := env.engine.ListAssetGroups(ctx, env.f.Owner.ID, env.f.Ledger.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)

	err = env.engine.DeleteAssetGroup(ctx, env.f.Owner.ID, group.ID)
	requireCode(t, err, common.KindNotFound, common.CodeGroupNotFound)
}

func TestCreateAssetGroup_Rejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreateAssetGroup(context.Background(), env.f.Owner.ID, env.f.Ledger.ID, "", model.AssetGroupTypeAsset)
	requireCode(t, err, common.KindValidation, common.CodeMissingField)

	_, err = env.engine.CreateAssetGroup(context.Background(), env.f.Owner.ID, env.f.Ledger.ID, "Misc", "OTHER")
	requireCode(t, err, common.KindValidation, common.CodeInvalidEnum)
}
