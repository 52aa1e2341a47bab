package tests

import (
	"context"
	"testing"

	"ridecore/internal/domain"
	"ridecore/internal/service"
)

// ──────────────────────────────────────────────
// 5. WALLET LEDGER
// ──────────────────────────────────────────────

func TestLedger_FirstCreditProvisionsWallet(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	ctx := context.Background()

	txn, err := service.ApplyCredit(ctx, repo, "driver-1", domain.WalletOwnerDriver, 20, "cancellation compensation", "ride", "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn == nil {
		t.Fatal("expected a ledger entry")
	}

	if txn.BalanceBefore != 0 || txn.BalanceAfter != 20 {
		t.Errorf("expected 0 -> 20, got %.0f -> %.0f", txn.BalanceBefore, txn.BalanceAfter)
	}
	if txn.Type != domain.TransactionTypeCredit {
		t.Errorf("expected CREDIT, got %s", txn.Type)
	}
	if txn.ReferenceType != "ride" || txn.ReferenceID != "ride-1" {
		t.Errorf("expected reference ride/ride-1, got %s/%s", txn.ReferenceType, txn.ReferenceID)
	}

	wallet := repo.GetWalletByOwner("driver-1", domain.WalletOwnerDriver)
	if wallet == nil {
		t.Fatal("wallet was not provisioned")
	}
	if wallet.Balance != 20 {
		t.Errorf("expected wallet balance 20, got %.0f", wallet.Balance)
	}
}

func TestLedger_ChainAndReplayIdentity(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	ctx := context.Background()

	steps := []struct {
		credit bool
		amount float64
	}{
		{true, 100},
		{false, 30},
		{true, 20},
		{false, 150}, // pushes the balance negative
		{true, 45},
	}

	for _, step := range steps {
		var err error
		if step.credit {
			_, err = service.ApplyCredit(ctx, repo, "rider-1", domain.WalletOwnerRider, step.amount, "test credit", "ride", "ride-1")
		} else {
			_, err = service.ApplyDebit(ctx, repo, "rider-1", domain.WalletOwnerRider, step.amount, "test debit", "ride", "ride-1")
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	wallet := repo.GetWalletByOwner("rider-1", domain.WalletOwnerRider)
	if wallet == nil {
		t.Fatal("wallet not found")
	}

	entries := repo.Ledger(wallet.ID)
	if len(entries) != len(steps) {
		t.Fatalf("expected %d ledger entries, got %d", len(steps), len(entries))
	}

	// Every entry's closing balance is the next entry's opening balance.
	for i := 1; i < len(entries); i++ {
		if entries[i].BalanceBefore != entries[i-1].BalanceAfter {
			t.Errorf("entry %d: BalanceBefore %.0f does not chain from previous BalanceAfter %.0f",
				i, entries[i].BalanceBefore, entries[i-1].BalanceAfter)
		}
	}

	// Replaying the ledger from zero reproduces the wallet balance.
	var replayed float64
	for _, e := range entries {
		if e.Type == domain.TransactionTypeCredit {
			replayed += e.Amount
		} else {
			replayed -= e.Amount
		}
	}
	if replayed != wallet.Balance {
		t.Errorf("replayed balance %.0f does not match wallet balance %.0f", replayed, wallet.Balance)
	}

	if last := entries[len(entries)-1]; last.BalanceAfter != wallet.Balance {
		t.Errorf("wallet balance %.0f does not match latest entry's BalanceAfter %.0f", wallet.Balance, last.BalanceAfter)
	}
}

func TestLedger_DebitMayGoNegative(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	ctx := context.Background()

	txn, err := service.ApplyDebit(ctx, repo, "rider-1", domain.WalletOwnerRider, 30, "cancellation fee", "ride", "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.BalanceAfter != -30 {
		t.Errorf("expected balance -30 (debt), got %.0f", txn.BalanceAfter)
	}

	wallet := repo.GetWalletByOwner("rider-1", domain.WalletOwnerRider)
	if wallet.Balance != -30 {
		t.Errorf("expected wallet balance -30, got %.0f", wallet.Balance)
	}
}

func TestLedger_NonPositiveAmountIsNoOp(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	ctx := context.Background()

	for _, amount := range []float64{0, -5} {
		txn, err := service.ApplyCredit(ctx, repo, "rider-1", domain.WalletOwnerRider, amount, "noop", "ride", "ride-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if txn != nil {
			t.Errorf("amount %.0f: expected no ledger entry, got %+v", amount, txn)
		}
	}

	if repo.CreateCallCount != 0 || repo.AppendCallCount != 0 {
		t.Error("no-op amounts must not touch the repository")
	}
}

func TestLedger_AppendFailurePropagates(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	repo.AppendError = ErrMockDBConstraint
	ctx := context.Background()

	if _, err := service.ApplyCredit(ctx, repo, "rider-1", domain.WalletOwnerRider, 10, "credit", "ride", "ride-1"); err == nil {
		t.Error("expected append failure to propagate")
	}
}

// ──────────────────────────────────────────────
// 6. WALLET READ PROJECTIONS
// ──────────────────────────────────────────────

func TestWalletService_UnknownOwnerReportsZeroBalance(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	svc := service.NewWalletService(repo)
	ctx := context.Background()

	wallet, err := svc.GetBalance(ctx, "rider-never-seen", domain.WalletOwnerRider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("expected zero balance, got %.0f", wallet.Balance)
	}

	// Reads never provision wallets.
	if repo.CreateCallCount != 0 {
		t.Error("GetBalance must not create a wallet")
	}
}

func TestWalletService_TransactionsNewestFirst(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	svc := service.NewWalletService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := service.ApplyCredit(ctx, repo, "driver-1", domain.WalletOwnerDriver, float64(10*(i+1)), "credit", "ride", "ride-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	txns, err := svc.GetTransactions(ctx, "driver-1", domain.WalletOwnerDriver, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(txns))
	}
	if txns[0].Amount != 30 || txns[2].Amount != 10 {
		t.Errorf("expected newest first (30..10), got %.0f..%.0f", txns[0].Amount, txns[2].Amount)
	}
}

func TestWalletService_LimitClamped(t *testing.T) {
	t.Parallel()

	repo := NewMockWalletRepository()
	svc := service.NewWalletService(repo)
	ctx := context.Background()

	if _, err := service.ApplyCredit(ctx, repo, "driver-1", domain.WalletOwnerDriver, 10, "credit", "ride", "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Out-of-range limits fall back to the default rather than erroring.
	for _, limit := range []int{-1, 0, 101} {
		if _, err := svc.GetTransactions(ctx, "driver-1", domain.WalletOwnerDriver, limit, 0); err != nil {
			t.Errorf("limit %d: unexpected error: %v", limit, err)
		}
	}
}
