package domain

import "time"

// WalletOwnerType distinguishes the two independent account kinds.
type WalletOwnerType string

const (
	WalletOwnerRider  WalletOwnerType = "RIDER"
	WalletOwnerDriver WalletOwnerType = "DRIVER"
)

// TransactionType is the direction of a wallet mutation.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Wallet holds a signed balance. A negative balance represents debt that is
// recovered on the owner's next spend.
type Wallet struct {
	ID        string
	OwnerID   string
	OwnerType WalletOwnerType
	Balance   float64
	CreatedAt time.Time
}

// WalletTransaction is one immutable ledger entry. Entries are append-only
// and never edited or deleted; BalanceAfter of entry n equals BalanceBefore
// of entry n+1, and the wallet row's Balance always equals the latest
// entry's BalanceAfter.
type WalletTransaction struct {
	ID            string
	WalletID      string
	Type          TransactionType
	Amount        float64
	BalanceBefore float64
	BalanceAfter  float64
	Reason        string

	// ReferenceType/ReferenceID point at the causing ride or subscription event.
	ReferenceType string
	ReferenceID   string

	CreatedAt time.Time
}
