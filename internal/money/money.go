package money

import (
	"github.com/shopspring/decimal"
)

// Пакет money содержит чисто вычислительную часть финансовой политики
// SamiLink. Здесь нет побочных эффектов и обращений к базе: все функции
// принимают значения и возвращают значения.
//
// Политика платформы фиксирована:
//   - клиент платит цену + НДС (комиссию платформы клиент не платит);
//   - комиссия платформы удерживается целиком с исполнителя;
//   - чистая выплата исполнителю = цена - комиссия.

var (
	two  = int32(2)
	four = int32(4)
)

// Q2 округляет денежную сумму до двух знаков (half-up).
func Q2(v decimal.Decimal) decimal.Decimal {
	return v.Round(two)
}

// Q4 округляет ставку (0..1) до четырёх знаков (half-up).
func Q4(v decimal.Decimal) decimal.Decimal {
	return v.Round(four)
}

// Breakdown — результат разложения цены по финансовой политике.
type Breakdown struct {
	NetForEmployee decimal.Decimal // чистая выплата исполнителю
	PlatformFee    decimal.Decimal // комиссия платформы (за счёт исполнителя)
	VATAmount      decimal.Decimal // НДС на цену
	ClientTotal    decimal.Decimal // итог для клиента: цена + НДС
}

// Compute раскладывает цену price по ставкам feeRate и vatRate (обе 0..1).
// При price <= 0 все составляющие равны нулю. Валидацию диапазона ставок
// выполняет хранилище финансовых настроек, здесь она намеренно не дублируется.
func Compute(price, feeRate, vatRate decimal.Decimal) Breakdown {
	p := Q2(price)
	if p.LessThanOrEqual(decimal.Zero) {
		zero := decimal.Zero.Round(two)
		return Breakdown{NetForEmployee: zero, PlatformFee: zero, VATAmount: zero, ClientTotal: zero}
	}

	fee := Q4(feeRate)
	vat := Q4(vatRate)

	platformFee := Q2(p.Mul(fee))
	vatAmount := Q2(p.Mul(vat))

	return Breakdown{
		NetForEmployee: Q2(p.Sub(platformFee)),
		PlatformFee:    platformFee,
		VATAmount:      vatAmount,
		ClientTotal:    Q2(p.Add(vatAmount)),
	}
}
