package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestTreasurySnapshotDerived(t *testing.T) {
	snap := &TreasurySnapshot{
		Collected:    dec("1000"),
		PayoutsPaid:  dec("400"),
		RefundsSent:  dec("50"),
		VATCollected: dec("150"),
		VATRemitted:  dec("60"),
		Receivables:  dec("300"),
	}
	snap.finalize()

	assert.True(t, snap.Balance.Equal(dec("490")))
	assert.True(t, snap.VATStock.Equal(dec("90")))
	// Обязательства перед клиентами считаются от собранного, выплаченного
	// и возвращённого; неоплаченные счета в них не входят.
	assert.True(t, snap.Liability.Equal(dec("550")))
}
