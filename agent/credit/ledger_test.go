package credit

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

type fakeCreditStore struct {
	balance   int
	debitErr  error
	creditErr error
	debits    int
	credits   int
}

func (f *fakeCreditStore) Debit(ctx context.Context, email string, n int) (bool, error) {
	if f.debitErr != nil {
		return false, f.debitErr
	}
	if f.balance < n {
		return false, nil
	}
	f.balance -= n
	f.debits++
	return true, nil
}

func (f *fakeCreditStore) Credit(ctx context.Context, email string, n int) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.balance += n
	f.credits++
	return nil
}

func (f *fakeCreditStore) Balance(ctx context.Context, email string) (int, error) {
	return f.balance, nil
}

func TestMeterDebitsAndRunsOperation(t *testing.T) {
	t.Parallel()

	store := &fakeCreditStore{balance: 3}
	ledger, err := NewLedger(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ledger.Meter(context.Background(), "dono@example.com", 1, func(ctx context.Context) (string, error) {
		return "https://fal.media/video.mp4", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "https://fal.media/video.mp4" {
		t.Fatalf("unexpected result: %q", result)
	}
	if store.balance != 2 {
		t.Fatalf("expected balance 2 after debit, got %d", store.balance)
	}
}

func TestMeterInsufficientCredits(t *testing.T) {
	t.Parallel()

	store := &fakeCreditStore{balance: 0}
	ledger, _ := NewLedger(store)

	opRan := false
	_, err := ledger.Meter(context.Background(), "dono@example.com", 1, func(ctx context.Context) (string, error) {
		opRan = true
		return "nope", nil
	})
	if !errors.Is(err, contractx.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if opRan {
		t.Fatal("operation must not run without funds")
	}
	if store.balance != 0 {
		t.Fatalf("balance must be untouched, got %d", store.balance)
	}
}

func TestMeterRefundsOnOperationFailure(t *testing.T) {
	t.Parallel()

	store := &fakeCreditStore{balance: 5}
	ledger, _ := NewLedger(store)

	opErr := errors.New("render backend down")
	_, err := ledger.Meter(context.Background(), "dono@example.com", 1, func(ctx context.Context) (string, error) {
		return "", opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("expected the operation error, got %v", err)
	}
	// Debit plus compensating credit: the balance is conserved.
	if store.balance != 5 {
		t.Fatalf("expected balance restored to 5, got %d", store.balance)
	}
	if store.debits != 1 || store.credits != 1 {
		t.Fatalf("expected one debit and one refund, got %d/%d", store.debits, store.credits)
	}
}

func TestMeterSwallowsRefundFailure(t *testing.T) {
	t.Parallel()

	store := &fakeCreditStore{balance: 5, creditErr: errors.New("db down")}
	ledger, _ := NewLedger(store)

	opErr := errors.New("render backend down")
	_, err := ledger.Meter(context.Background(), "dono@example.com", 1, func(ctx context.Context) (string, error) {
		return "", opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("the operation error wins over the refund error, got %v", err)
	}
}

func TestMeterRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	ledger, _ := NewLedger(&fakeCreditStore{balance: 5})
	_, err := ledger.Meter(context.Background(), "dono@example.com", 0, func(ctx context.Context) (string, error) {
		return "x", nil
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
