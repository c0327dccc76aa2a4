package gift

import (
	"fmt"
	"math/big"
	"strings"
)

// decPrecision is the number of fractional digits carried by Dec. It matches
// the 18-place fixed-point arithmetic of the on-chain campaign so payout
// vectors reproduce bit-for-bit.
const decPrecision = 18

var decUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(decPrecision), nil)

// Dec is an 18-place fixed-point decimal backed by a big.Int mantissa. All
// operations floor; there is no rounding mode. The zero value is 0.
type Dec struct {
	i *big.Int
}

func ZeroDec() Dec { return Dec{i: big.NewInt(0)} }

func OneDec() Dec { return Dec{i: new(big.Int).Set(decUnit)} }

// NewDecFromInt lifts an integer into Dec space.
func NewDecFromInt(v *big.Int) Dec {
	if v == nil {
		return ZeroDec()
	}
	return Dec{i: new(big.Int).Mul(v, decUnit)}
}

// NewDecFromUint64 lifts an unsigned integer into Dec space.
func NewDecFromUint64(v uint64) Dec {
	return NewDecFromInt(new(big.Int).SetUint64(v))
}

// NewDecFromRatio returns num/den at full 18-place precision, flooring the
// result. A zero denominator yields zero.
func NewDecFromRatio(num, den *big.Int) Dec {
	if num == nil || den == nil || den.Sign() == 0 {
		return ZeroDec()
	}
	scaled := new(big.Int).Mul(num, decUnit)
	return Dec{i: scaled.Quo(scaled, den)}
}

// DecPercent returns p/100 as a Dec.
func DecPercent(p uint64) Dec {
	return NewDecFromRatio(new(big.Int).SetUint64(p), big.NewInt(100))
}

// DecFromMantissa restores a Dec from its raw mantissa, the storage
// representation.
func DecFromMantissa(m *big.Int) Dec {
	if m == nil {
		return ZeroDec()
	}
	return Dec{i: new(big.Int).Set(m)}
}

// Mantissa exposes the raw scaled integer for persistence.
func (d Dec) Mantissa() *big.Int {
	if d.i == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(d.i)
}

func (d Dec) mantissa() *big.Int {
	if d.i == nil {
		return big.NewInt(0)
	}
	return d.i
}

func (d Dec) Add(other Dec) Dec {
	return Dec{i: new(big.Int).Add(d.mantissa(), other.mantissa())}
}

func (d Dec) Sub(other Dec) Dec {
	return Dec{i: new(big.Int).Sub(d.mantissa(), other.mantissa())}
}

// Mul multiplies two decimals, flooring to 18 places.
func (d Dec) Mul(other Dec) Dec {
	prod := new(big.Int).Mul(d.mantissa(), other.mantissa())
	return Dec{i: prod.Quo(prod, decUnit)}
}

// MulInt applies the decimal to an integer amount and floors the result back
// to integer space.
func (d Dec) MulInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	prod := new(big.Int).Mul(d.mantissa(), v)
	return prod.Quo(prod, decUnit)
}

func (d Dec) Cmp(other Dec) int {
	return d.mantissa().Cmp(other.mantissa())
}

func (d Dec) IsZero() bool { return d.mantissa().Sign() == 0 }

func (d Dec) IsNegative() bool { return d.mantissa().Sign() < 0 }

// Float64 returns a lossy approximation, intended only for metrics.
func (d Dec) Float64() float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(d.mantissa()),
		new(big.Float).SetInt(decUnit),
	).Float64()
	return f
}

// String renders the decimal with trailing fractional zeros trimmed.
func (d Dec) String() string {
	m := d.mantissa()
	neg := m.Sign() < 0
	abs := new(big.Int).Abs(m)
	quo, rem := new(big.Int).QuoRem(abs, decUnit, new(big.Int))
	out := quo.String()
	if rem.Sign() != 0 {
		frac := fmt.Sprintf("%0*s", decPrecision, rem.String())
		frac = strings.TrimRight(frac, "0")
		out = out + "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
