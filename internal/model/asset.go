package model

import "time"

// AssetGroupType separates things you own from things you owe.
type AssetGroupType string

// Asset group types.
const (
	AssetGroupTypeAsset AssetGroupType = "ASSET"
	AssetGroupTypeDebt  AssetGroupType = "DEBT"
)

// Valid reports whether the group type is known.
func (t AssetGroupType) Valid() bool {
	return t == AssetGroupTypeAsset || t == AssetGroupTypeDebt
}

// AssetKind describes what sort of account an asset is.
type AssetKind string

// Asset kinds.
const (
	AssetKindCash       AssetKind = "CASH"
	AssetKindBank       AssetKind = "BANK"
	AssetKindCheckCard  AssetKind = "CHECK_CARD"
	AssetKindCreditCard AssetKind = "CREDIT_CARD"
	AssetKindLoan       AssetKind = "LOAN"
	AssetKindInvestment AssetKind = "INVESTMENT"
	AssetKindOther      AssetKind = "OTHER"
)

// Valid reports whether the asset kind is known.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetKindCash, AssetKindBank, AssetKindCheckCard, AssetKindCreditCard,
		AssetKindLoan, AssetKindInvestment, AssetKindOther:
		return true
	}
	return false
}

// AssetGroup clusters assets for display, e.g. "Everyday accounts".
type AssetGroup struct {
	CreatedAt time.Time
	Name      string
	Type      AssetGroupType
	ID        int64
	LedgerID  int64
	SortOrder int
}

// CardBilling holds optional credit-card statement metadata.
type CardBilling struct {
	PaymentAssetID *int64
	BillingDay     int
	PaymentDay     int
}

// Asset is a balance-carrying account such as a wallet, bank account or loan.
// CurrentBalance is only ever changed by posting transactions.
type Asset struct {
	CreatedAt         time.Time
	GroupID           *int64
	Billing           *CardBilling
	Name              string
	Kind              AssetKind
	ID                int64
	LedgerID          int64
	InitialBalance    int64
	CurrentBalance    int64
	SortOrder         int
	IncludeInNetWorth bool
}
