package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func mustDec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCanonicalRequestStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"new", RequestStatusNew, true},
		{" NEW ", RequestStatusNew, true},
		{"Dispute", RequestStatusDisputed, true},
		{"canceled", RequestStatusCancelled, true},
		{"done", RequestStatusCompleted, true},
		{"in-progress", RequestStatusInProgress, true},
		{"garbage", "garbage", false},
	}
	for _, c := range cases {
		got, ok := CanonicalRequestStatus(c.raw)
		assert.Equal(t, c.want, got, "raw=%q", c.raw)
		assert.Equal(t, c.ok, ok, "raw=%q", c.raw)
	}
}

func TestCanonicalInvoiceStatus(t *testing.T) {
	got, ok := CanonicalInvoiceStatus("PAYED")
	assert.True(t, ok)
	assert.Equal(t, InvoiceStatusPaid, got)

	got, ok = CanonicalInvoiceStatus("void")
	assert.True(t, ok)
	assert.Equal(t, InvoiceStatusCancelled, got)
}

func TestInvoiceRecomputeTotals(t *testing.T) {
	inv := &Invoice{
		Amount:             mustDec("200.00"),
		PlatformFeePercent: mustDec("0.10"),
		VATPercent:         mustDec("0.15"),
	}
	inv.RecomputeTotals()

	assert.Equal(t, "20", inv.PlatformFeeAmount.String())
	assert.Equal(t, "30", inv.VATAmount.String())
	assert.Equal(t, "200", inv.Subtotal.String())
	assert.Equal(t, "230", inv.TotalAmount.String())
}

func TestIsTerminalRequestStatus(t *testing.T) {
	assert.True(t, IsTerminalRequestStatus(RequestStatusCompleted))
	assert.True(t, IsTerminalRequestStatus(RequestStatusCancelled))
	assert.True(t, IsTerminalRequestStatus(RequestStatusDisputed))
	assert.False(t, IsTerminalRequestStatus(RequestStatusInProgress))
	assert.False(t, IsTerminalRequestStatus(RequestStatusNew))
}
