package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/testutil"
)

func TestRegisterUser_SeedsMainLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, nil)
	ctx := context.Background()

	user, err := e.RegisterUser(ctx, " Alice@Example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	require.NotNil(t, user.MainLedgerID)

	ledger, err := db.Storage.GetLedger(ctx, *user.MainLedgerID)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Equal(t, "Alice's Ledger", ledger.Name)
	assert.Equal(t, "USD", ledger.CurrencyCode)
	assert.Equal(t, 1, ledger.MonthStartDay)

	member, err := db.Storage.GetMember(ctx, ledger.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.RoleOwner, member.Role)

	categories, err := db.Storage.ListCategories(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Len(t, categories, len(model.DefaultCategories))

	stored, err := db.Storage.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MainLedgerID)
	assert.Equal(t, ledger.ID, *stored.MainLedgerID)
}

func TestRegisterUser_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := NewWithConfig(db.Storage, nil, Config{DefaultCurrency: "KRW"})
	ctx := context.Background()

	first, err := e.RegisterUser(ctx, "bob@example.com", "Bob")
	require.NoError(t, err)
	second, err := e.RegisterUser(ctx, "BOB@example.com", "Robert")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Bob", second.DisplayName)
	assert.Equal(t, 1, db.CountRows("ledgers"))
	assert.Equal(t, len(model.DefaultCategories), db.CountRows("categories"))

	ledger, err := db.Storage.GetLedger(ctx, *first.MainLedgerID)
	require.NoError(t, err)
	assert.Equal(t, "KRW", ledger.CurrencyCode)
}

func TestRegisterUser_Rejections(t *testing.T) {
	e := New(testutil.SetupTestDB(t).Storage, nil)

	_, err := e.RegisterUser(context.Background(), "nobody", "Nobody")
	requireCode(t, err, common.KindValidation, common.CodeInvalidEmail)

	_, err = e.RegisterUser(context.Background(), "carol@example.com", "   ")
	requireCode(t, err, common.KindValidation, common.CodeMissingField)
}

func TestCreateLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, nil)
	ctx := context.Background()

	user, err := e.RegisterUser(ctx, "dana@example.com", "Dana")
	require.NoError(t, err)
	main := *user.MainLedgerID

	ledger, err := e.CreateLedger(ctx, user.ID, "  Trip  ", "", 25)
	require.NoError(t, err)
	assert.Equal(t, "Trip", ledger.Name)
	assert.Equal(t, "USD", ledger.CurrencyCode)
	assert.Equal(t, 25, ledger.MonthStartDay)

	stored, err := db.Storage.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, main, *stored.MainLedgerID, "an additional ledger leaves the main ledger alone")

	ledgers, err := e.ListLedgers(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, ledgers, 2)
	assert.Equal(t, main, ledgers[0].ID)
}

func TestCreateLedger_FirstLedgerBecomesMain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, nil)
	ctx := context.Background()

	user, err := db.Storage.CreateUser(ctx, "erin@example.com", "Erin")
	require.NoError(t, err)

	ledger, err := e.CreateLedger(ctx, user.ID, "Erin's", "EUR", 1)
	require.NoError(t, err)

	stored, err := db.Storage.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MainLedgerID)
	assert.Equal(t, ledger.ID, *stored.MainLedgerID)
}

func TestCreateLedger_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, nil)
	user, err := e.RegisterUser(context.Background(), "fay@example.com", "Fay")
	require.NoError(t, err)

	tests := []struct {
		name     string
		ledger   string
		currency string
		owner    int64
		day      int
		kind     common.Kind
		code     common.Code
	}{
		{name: "empty name", ledger: " ", currency: "USD", owner: user.ID, day: 1,
			kind: common.KindValidation, code: common.CodeMissingField},
		{name: "lower-case currency", ledger: "L", currency: "usd", owner: user.ID, day: 1,
			kind: common.KindValidation, code: common.CodeInvalidCurrency},
		{name: "short currency", ledger: "L", currency: "US", owner: user.ID, day: 1,
			kind: common.KindValidation, code: common.CodeInvalidCurrency},
		{name: "month start zero", ledger: "L", currency: "USD", owner: user.ID, day: 0,
			kind: common.KindValidation, code: common.CodeInvalidMonthStartDay},
		{name: "month start past 28", ledger: "L", currency: "USD", owner: user.ID, day: 29,
			kind: common.KindValidation, code: common.CodeInvalidMonthStartDay},
		{name: "unknown owner", ledger: "L", currency: "USD", owner: 9999, day: 1,
			kind: common.KindNotFound, code: common.CodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateLedger(context.Background(), tt.owner, tt.ledger, tt.currency, tt.day)
			requireCode(t, err, tt.kind, tt.code)
			assert.Equal(t, 1, db.CountRows("ledgers"))
		})
	}
}
