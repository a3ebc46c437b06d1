package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_Effects(t *testing.T) {
	bank := int64(2)

	tests := []struct {
		name string
		txn  Transaction
		want []BalanceEffect
	}{
		{
			name: "income credits the asset",
			txn:  Transaction{Type: TransactionTypeIncome, AssetID: 1, Amount: 500},
			want: []BalanceEffect{{AssetID: 1, Delta: 500}},
		},
		{
			name: "expense debits the asset",
			txn:  Transaction{Type: TransactionTypeExpense, AssetID: 1, Amount: 3000},
			want: []BalanceEffect{{AssetID: 1, Delta: -3000}},
		},
		{
			name: "transfer moves money between assets",
			txn:  Transaction{Type: TransactionTypeTransfer, AssetID: 1, CounterAssetID: &bank, Amount: 2000},
			want: []BalanceEffect{{AssetID: 1, Delta: -2000}, {AssetID: 2, Delta: 2000}},
		},
		{
			name: "unknown type has no effect",
			txn:  Transaction{Type: "REFUND", AssetID: 1, Amount: 10},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txn.Effects())
		})
	}
}

func TestTransactionType_CategoryType(t *testing.T) {
	assert.Equal(t, CategoryTypeIncome, TransactionTypeIncome.CategoryType())
	assert.Equal(t, CategoryTypeExpense, TransactionTypeExpense.CategoryType())
	assert.Equal(t, CategoryType(""), TransactionTypeTransfer.CategoryType())
}

func TestInvitationStatus_IsTerminal(t *testing.T) {
	assert.False(t, InvitationPending.IsTerminal())
	assert.True(t, InvitationAccepted.IsTerminal())
	assert.True(t, InvitationDeclined.IsTerminal())
	assert.True(t, InvitationExpired.IsTerminal())
}

func TestRole_CanWrite(t *testing.T) {
	assert.True(t, RoleOwner.CanWrite())
	assert.True(t, RoleEditor.CanWrite())
	assert.False(t, RoleViewer.CanWrite())
	assert.False(t, Role("ADMIN").Valid())
}
