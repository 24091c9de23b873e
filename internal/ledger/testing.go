package ledger

import (
	"context"

	"github.com/nexusplay/nexusplay/internal/money"
)

// Seed is a test helper that funds a party's wallet through a completed
// deposit, keeping the balance-equals-sum-of-entries invariant intact.
func Seed(l Ledger, partyID string, amount money.Money) error {
	_, err := l.Credit(context.Background(), partyID, amount, TypeDeposit, StatusCompleted, Metadata{
		MetaDescription: "test seed",
	})
	return err
}
