package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestCompute_ReferenceCase(t *testing.T) {
	// 100.00 при комиссии 10% и НДС 15%
	bd := Compute(d("100.00"), d("0.10"), d("0.15"))

	assert.True(t, bd.PlatformFee.Equal(d("10.00")), "fee: %s", bd.PlatformFee)
	assert.True(t, bd.VATAmount.Equal(d("15.00")), "vat: %s", bd.VATAmount)
	assert.True(t, bd.ClientTotal.Equal(d("115.00")), "client: %s", bd.ClientTotal)
	assert.True(t, bd.NetForEmployee.Equal(d("90.00")), "net: %s", bd.NetForEmployee)
}

func TestCompute_ZeroAndNegativePrice(t *testing.T) {
	for _, price := range []string{"0", "0.00", "-5.00"} {
		bd := Compute(d(price), d("0.10"), d("0.15"))
		assert.True(t, bd.PlatformFee.IsZero())
		assert.True(t, bd.VATAmount.IsZero())
		assert.True(t, bd.ClientTotal.IsZero())
		assert.True(t, bd.NetForEmployee.IsZero())
	}
}

func TestCompute_FeePlusNetEqualsPrice(t *testing.T) {
	cases := []struct{ price, fee, vat string }{
		{"100.00", "0.10", "0.15"},
		{"99.99", "0.1234", "0.05"},
		{"0.01", "0.5", "1"},
		{"1234567.89", "0.0001", "0.15"},
		{"33.33", "0.3333", "0.0733"},
	}
	for _, c := range cases {
		bd := Compute(d(c.price), d(c.fee), d(c.vat))
		assert.True(t, bd.PlatformFee.Add(bd.NetForEmployee).Equal(Q2(d(c.price))),
			"fee+net != price для %s/%s", c.price, c.fee)
		assert.True(t, bd.ClientTotal.Equal(Q2(d(c.price)).Add(bd.VATAmount)),
			"client != price+vat для %s/%s", c.price, c.vat)
	}
}

func TestCompute_HalfUpRounding(t *testing.T) {
	// 10.05 * 0.5 = 5.025 -> 5.03 (half-up)
	bd := Compute(d("10.05"), d("0.5"), d("0.5"))
	assert.True(t, bd.PlatformFee.Equal(d("5.03")), "fee: %s", bd.PlatformFee)
	assert.True(t, bd.VATAmount.Equal(d("5.03")), "vat: %s", bd.VATAmount)
	assert.True(t, bd.NetForEmployee.Equal(d("5.02")), "net: %s", bd.NetForEmployee)
}

func TestQ4_RateRounding(t *testing.T) {
	assert.True(t, Q4(d("0.12345")).Equal(d("0.1235")))
	assert.True(t, Q4(d("0.1")).Equal(d("0.1")))
}
