package services

import (
	"context"
	"errors"
	"testing"

	"github.com/learnora/academy-api/model"
)

func TestWalletBalanceAndLedger(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	ctx := context.Background()

	user := createUser(t, db, model.RoleInstructor)

	balance, err := wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if balance != 0 {
		t.Errorf("empty balance = %v, want 0", balance)
	}

	if err := wallet.Credit(ctx, nil, user.ID, 100, model.WalletTypeCommission, "commission", 1, "test credit"); err != nil {
		t.Fatalf("Credit() = %v", err)
	}
	if err := wallet.Debit(ctx, nil, user.ID, 40, model.WalletTypeWithdrawal, "withdrawal_request", 1, "test debit"); err != nil {
		t.Fatalf("Debit() = %v", err)
	}

	balance, err = wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if balance != 60 {
		t.Errorf("balance = %v, want 60", balance)
	}

	entries, total, err := wallet.History(ctx, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("History() = %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Errorf("history = %d entries (total %d), want 2", len(entries), total)
	}
}

func TestWalletRejectsBadAmounts(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	ctx := context.Background()

	user := createUser(t, db, model.RoleInstructor)

	if err := wallet.Credit(ctx, nil, user.ID, 0, model.WalletTypeTopUp, "", 0, ""); err == nil {
		t.Error("Credit(0) succeeded, want error")
	}
	if err := wallet.Credit(ctx, nil, user.ID, -5, model.WalletTypeTopUp, "", 0, ""); err == nil {
		t.Error("Credit(-5) succeeded, want error")
	}
	if err := wallet.Debit(ctx, nil, user.ID, -5, model.WalletTypeWithdrawal, "", 0, ""); err == nil {
		t.Error("Debit(-5) succeeded, want error")
	}
}

func TestWalletDebitInsufficient(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	ctx := context.Background()

	user := createUser(t, db, model.RoleInstructor)
	if err := wallet.Credit(ctx, nil, user.ID, 30, model.WalletTypeCommission, "commission", 1, ""); err != nil {
		t.Fatalf("Credit() = %v", err)
	}

	err := wallet.Debit(ctx, nil, user.ID, 30.01, model.WalletTypeWithdrawal, "withdrawal_request", 1, "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Debit(30.01) = %v, want ErrInsufficientBalance", err)
	}

	// The failed debit must not have touched the ledger
	balance, err := wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if balance != 30 {
		t.Errorf("balance after failed debit = %v, want 30", balance)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	admin := createUser(t, db, model.RoleAdmin)

	if err := wallet.Credit(ctx, nil, instructor.ID, 200, model.WalletTypeCommission, "commission", 1, ""); err != nil {
		t.Fatalf("Credit() = %v", err)
	}

	// Over-asking is rejected up front
	if _, err := wallet.RequestWithdrawal(ctx, instructor.ID, 250, ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("RequestWithdrawal(250) = %v, want ErrInsufficientBalance", err)
	}

	request, err := wallet.RequestWithdrawal(ctx, instructor.ID, 150, "rent")
	if err != nil {
		t.Fatalf("RequestWithdrawal() = %v", err)
	}
	if request.Status != model.WithdrawalStatusPending {
		t.Errorf("status = %q, want pending", request.Status)
	}

	// The request alone does not debit anything
	balance, _ := wallet.Balance(ctx, instructor.ID)
	if balance != 200 {
		t.Errorf("balance after request = %v, want 200", balance)
	}

	processed, err := wallet.ProcessWithdrawal(ctx, request.ID, admin.ID, true, "wired")
	if err != nil {
		t.Fatalf("ProcessWithdrawal() = %v", err)
	}
	if processed.Status != model.WithdrawalStatusApproved {
		t.Errorf("status = %q, want approved", processed.Status)
	}
	if processed.ProcessedBy == nil || *processed.ProcessedBy != admin.ID || processed.ProcessedAt == nil {
		t.Errorf("processed = %+v, want admin id and timestamp recorded", processed)
	}

	balance, _ = wallet.Balance(ctx, instructor.ID)
	if balance != 50 {
		t.Errorf("balance after approval = %v, want 50", balance)
	}

	// Re-processing the same request is refused
	if _, err := wallet.ProcessWithdrawal(ctx, request.ID, admin.ID, true, ""); !errors.Is(err, ErrWithdrawalNotPending) {
		t.Errorf("duplicate ProcessWithdrawal() = %v, want ErrWithdrawalNotPending", err)
	}

	if _, err := wallet.ProcessWithdrawal(ctx, 99999, admin.ID, true, ""); !errors.Is(err, ErrWithdrawalNotFound) {
		t.Errorf("ProcessWithdrawal(missing) = %v, want ErrWithdrawalNotFound", err)
	}
}

func TestWithdrawalRejectionKeepsBalance(t *testing.T) {
	db := newTestDB(t)
	wallet := NewWalletService(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	admin := createUser(t, db, model.RoleAdmin)

	if err := wallet.Credit(ctx, nil, instructor.ID, 80, model.WalletTypeCommission, "commission", 1, ""); err != nil {
		t.Fatalf("Credit() = %v", err)
	}
	request, err := wallet.RequestWithdrawal(ctx, instructor.ID, 80, "")
	if err != nil {
		t.Fatalf("RequestWithdrawal() = %v", err)
	}

	processed, err := wallet.ProcessWithdrawal(ctx, request.ID, admin.ID, false, "account mismatch")
	if err != nil {
		t.Fatalf("ProcessWithdrawal() = %v", err)
	}
	if processed.Status != model.WithdrawalStatusRejected {
		t.Errorf("status = %q, want rejected", processed.Status)
	}
	if processed.AdminNote != "account mismatch" {
		t.Errorf("admin note = %q, want preserved", processed.AdminNote)
	}

	balance, _ := wallet.Balance(ctx, instructor.ID)
	if balance != 80 {
		t.Errorf("balance after rejection = %v, want 80", balance)
	}
}
