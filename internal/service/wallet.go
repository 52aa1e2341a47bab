package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// WalletService exposes read projections of the ledger. All balance
// mutations go through ApplyCredit/ApplyDebit inside the transaction of the
// causing ride or subscription event; nothing else writes balances.
type WalletService struct {
	walletRepo repository.WalletRepository
}

// NewWalletService creates a new WalletService.
func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// GetBalance returns the wallet for an owner. An owner that has never been
// touched by the ledger is reported as a zero-balance wallet without
// persisting anything.
func (s *WalletService) GetBalance(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	if ownerID == "" {
		return nil, ErrInvalidDriverID
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.Wallet{OwnerID: ownerID, OwnerType: ownerType}, nil
		}
		return nil, err
	}

	return wallet, nil
}

// GetTransactions returns the owner's ledger entries, newest first.
func (s *WalletService) GetTransactions(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType, limit, offset int) ([]*domain.WalletTransaction, error) {
	if ownerID == "" {
		return nil, ErrInvalidDriverID
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.walletRepo.GetTransactions(ctx, wallet.ID, limit, offset)
}

// ApplyCredit credits a wallet and appends the ledger entry recording it.
// It operates on whatever repository it is handed, so callers compose it
// into their own transaction. Amounts <= 0 are a safe no-op.
func ApplyCredit(ctx context.Context, repo repository.WalletRepository, ownerID string, ownerType domain.WalletOwnerType, amount float64, reason, refType, refID string) (*domain.WalletTransaction, error) {
	return applyMutation(ctx, repo, ownerID, ownerType, domain.TransactionTypeCredit, amount, reason, refType, refID)
}

// ApplyDebit debits a wallet and appends the ledger entry recording it.
// The balance may go negative: that is debt, recovered on the owner's next
// spend. Amounts <= 0 are a safe no-op.
func ApplyDebit(ctx context.Context, repo repository.WalletRepository, ownerID string, ownerType domain.WalletOwnerType, amount float64, reason, refType, refID string) (*domain.WalletTransaction, error) {
	return applyMutation(ctx, repo, ownerID, ownerType, domain.TransactionTypeDebit, amount, reason, refType, refID)
}

func applyMutation(ctx context.Context, repo repository.WalletRepository, ownerID string, ownerType domain.WalletOwnerType, txnType domain.TransactionType, amount float64, reason, refType, refID string) (*domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, nil
	}

	wallet, err := lockOrCreateWallet(ctx, repo, ownerID, ownerType)
	if err != nil {
		return nil, err
	}

	before := wallet.Balance
	after := before + amount
	if txnType == domain.TransactionTypeDebit {
		after = before - amount
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, after); err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:            uuid.New().String(),
		WalletID:      wallet.ID,
		Type:          txnType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reason:        reason,
		ReferenceType: refType,
		ReferenceID:   refID,
		CreatedAt:     time.Now(),
	}

	if err := repo.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// lockOrCreateWallet locks the owner's wallet row, provisioning it on first
// touch.
func lockOrCreateWallet(ctx context.Context, repo repository.WalletRepository, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	wallet, err := repo.GetByOwnerForUpdate(ctx, ownerID, ownerType)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	wallet = &domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Balance:   0,
		CreatedAt: time.Now(),
	}
	if err := repo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	return wallet, nil
}
