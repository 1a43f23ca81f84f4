// Package credit meters paid features against the tenant's credit balance.
package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// Ledger enforces the debit-before-use pattern: the balance is decremented
// before the metered operation runs, and restored by an equal-magnitude
// credit when the operation fails. This is a compensating action, not a
// transaction; the balance briefly reflects the debit while the operation is
// in flight.
type Ledger struct {
	store contractx.CreditStore
}

func NewLedger(store contractx.CreditStore) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("credit store is required")
	}
	return &Ledger{store: store}, nil
}

// Meter debits n credits from the tenant, runs op, and refunds on failure.
// Insufficient funds reject the operation before any side effect.
func (l *Ledger) Meter(ctx context.Context, email string, n int, op func(context.Context) (string, error)) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: metered amount must be positive", contractx.ErrValidation)
	}

	ok, err := l.store.Debit(ctx, email, n)
	if err != nil {
		return "", fmt.Errorf("debit %d credits for %s: %w", n, email, err)
	}
	if !ok {
		return "", contractx.ErrInsufficientCredits
	}

	result, opErr := op(ctx)
	if opErr != nil {
		if refundErr := l.store.Credit(ctx, email, n); refundErr != nil {
			// The refund itself failing is the one case where balance drifts;
			// log it loudly so it can be reconciled by hand.
			log.Error().Err(refundErr).Str("tenant", email).Int("credits", n).
				Msg("refund after failed metered operation did not apply")
		}
		return "", opErr
	}
	return result, nil
}

// Balance reports the current balance for display surfaces.
func (l *Ledger) Balance(ctx context.Context, email string) (int, error) {
	return l.store.Balance(ctx, email)
}
