package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// NewWalletRepositoryWithTx creates a wallet repository using a transaction.
func NewWalletRepositoryWithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// GetByOwner retrieves a wallet by owner.
func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	query := `
		SELECT id, owner_id, owner_type, balance, created_at
		FROM wallets WHERE owner_id = $1 AND owner_type = $2
	`
	return r.scan(r.q.QueryRowContext(ctx, query, ownerID, ownerType))
}

// GetByOwnerForUpdate retrieves a wallet by owner with a row lock.
func (r *WalletRepository) GetByOwnerForUpdate(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	query := `
		SELECT id, owner_id, owner_type, balance, created_at
		FROM wallets WHERE owner_id = $1 AND owner_type = $2 FOR UPDATE
	`
	return r.scan(r.q.QueryRowContext(ctx, query, ownerID, ownerType))
}

// Create persists a new wallet.
func (r *WalletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, owner_type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query, w.ID, w.OwnerID, w.OwnerType, w.Balance, w.CreatedAt)
	return err
}

// UpdateBalance writes the wallet's new balance.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance float64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE wallets SET balance = $2 WHERE id = $1`,
		walletID, balance,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AppendTransaction appends an immutable ledger entry. Entries are never
// updated or deleted.
func (r *WalletRepository) AppendTransaction(ctx context.Context, txn *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions
			(id, wallet_id, type, amount, balance_before, balance_after,
			 reason, reference_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.Type,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Reason,
		nullString(txn.ReferenceType),
		nullString(txn.ReferenceID),
		txn.CreatedAt,
	)
	return err
}

// GetTransactions retrieves ledger entries for a wallet, newest first.
func (r *WalletRepository) GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, balance_before, balance_after,
			   reason, reference_type, reference_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.WalletTransaction
	for rows.Next() {
		var txn domain.WalletTransaction
		var refType, refID sql.NullString
		if err := rows.Scan(
			&txn.ID,
			&txn.WalletID,
			&txn.Type,
			&txn.Amount,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.Reason,
			&refType,
			&refID,
			&txn.CreatedAt,
		); err != nil {
			return nil, err
		}
		txn.ReferenceType = refType.String
		txn.ReferenceID = refID.String
		txns = append(txns, &txn)
	}
	return txns, rows.Err()
}

func (r *WalletRepository) scan(row *sql.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.OwnerType, &w.Balance, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}
