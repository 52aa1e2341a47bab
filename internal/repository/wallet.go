package repository

import (
	"context"

	"ridecore/internal/domain"
)

// WalletRepository defines the persistence operations for wallets and their
// append-only transaction log. Balances are mutated only through the ledger
// service; no other code writes them directly.
type WalletRepository interface {
	// GetByOwner retrieves a wallet by owner, or ErrNotFound.
	GetByOwner(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error)

	// GetByOwnerForUpdate is GetByOwner with a row lock, serializing
	// concurrent balance mutations. Only meaningful on a
	// transaction-scoped repository.
	GetByOwnerForUpdate(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error)

	// Create persists a new wallet.
	Create(ctx context.Context, wallet *domain.Wallet) error

	// UpdateBalance writes the wallet's new balance.
	UpdateBalance(ctx context.Context, walletID string, balance float64) error

	// AppendTransaction appends an immutable ledger entry.
	AppendTransaction(ctx context.Context, txn *domain.WalletTransaction) error

	// GetTransactions retrieves ledger entries for a wallet, newest first.
	GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error)
}
