// Package numerics provides the option-pricing capability set the
// session engine treats as an external collaborator per spec.md §9
// ("pricing library dependency"): PriceCall, PricePut, CallDelta,
// PutDelta, Gamma, and ImpliedVolatility. The formulas are standard
// closed-form Black-Scholes math, grounded on
// wyfcoding-financialTrading/internal/pricing/domain/black_scholes.go's
// CalculateBlackScholes/normCdf/normPdf shape, generalized here to
// operate on decimal.Decimal inputs/outputs so the chain builder's
// pricing calls take and return decimal.Decimal directly.
package numerics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Inputs bundles the six Black-Scholes parameters shared by calls and
// puts: spot, strike, time to expiry (years), risk-free rate, dividend
// yield, and volatility.
type Inputs struct {
	Spot          decimal.Decimal
	Strike        decimal.Decimal
	TimeToExpiry  decimal.Decimal
	RiskFreeRate  decimal.Decimal
	DividendYield decimal.Decimal
	Volatility    decimal.Decimal
}

func (in Inputs) d1d2() (d1, d2 float64) {
	s, _ := in.Spot.Float64()
	k, _ := in.Strike.Float64()
	t, _ := in.TimeToExpiry.Float64()
	r, _ := in.RiskFreeRate.Float64()
	q, _ := in.DividendYield.Float64()
	v, _ := in.Volatility.Float64()

	sqrtT := math.Sqrt(t)
	d1 = (math.Log(s/k) + (r-q+0.5*v*v)*t) / (v * sqrtT)
	d2 = d1 - v*sqrtT
	return d1, d2
}

// PriceCall returns the Black-Scholes call price.
func PriceCall(in Inputs) decimal.Decimal {
	s, _ := in.Spot.Float64()
	k, _ := in.Strike.Float64()
	t, _ := in.TimeToExpiry.Float64()
	r, _ := in.RiskFreeRate.Float64()
	q, _ := in.DividendYield.Float64()

	d1, d2 := in.d1d2()
	price := s*math.Exp(-q*t)*normCdf(d1) - k*math.Exp(-r*t)*normCdf(d2)
	return decimal.NewFromFloat(price)
}

// PricePut returns the Black-Scholes put price.
func PricePut(in Inputs) decimal.Decimal {
	s, _ := in.Spot.Float64()
	k, _ := in.Strike.Float64()
	t, _ := in.TimeToExpiry.Float64()
	r, _ := in.RiskFreeRate.Float64()
	q, _ := in.DividendYield.Float64()

	d1, d2 := in.d1d2()
	price := k*math.Exp(-r*t)*normCdf(-d2) - s*math.Exp(-q*t)*normCdf(-d1)
	return decimal.NewFromFloat(price)
}

// CallDelta returns d(call price)/d(spot), in [0, 1].
func CallDelta(in Inputs) decimal.Decimal {
	t, _ := in.TimeToExpiry.Float64()
	q, _ := in.DividendYield.Float64()
	d1, _ := in.d1d2()
	return decimal.NewFromFloat(math.Exp(-q*t) * normCdf(d1))
}

// PutDelta returns d(put price)/d(spot), in [-1, 0].
func PutDelta(in Inputs) decimal.Decimal {
	t, _ := in.TimeToExpiry.Float64()
	q, _ := in.DividendYield.Float64()
	d1, _ := in.d1d2()
	return decimal.NewFromFloat(math.Exp(-q*t) * (normCdf(d1) - 1))
}

// Gamma is shared between calls and puts under Black-Scholes: it is
// always non-negative.
func Gamma(in Inputs) decimal.Decimal {
	s, _ := in.Spot.Float64()
	t, _ := in.TimeToExpiry.Float64()
	q, _ := in.DividendYield.Float64()
	v, _ := in.Volatility.Float64()
	d1, _ := in.d1d2()

	g := math.Exp(-q*t) * normPdf(d1) / (s * v * math.Sqrt(t))
	return decimal.NewFromFloat(g)
}

// ImpliedVolatility solves for sigma such that PriceCall/PricePut
// reproduces targetPrice, via bisection (robust over the wide vol
// ranges a smile curve can produce, unlike Newton-Raphson which can
// diverge near-zero vega). Returns ErrDidNotConverge if the bracket
// fails to close within maxIterations; callers fall back to the input
// sigma per spec.md §7 (IVNotConverged is a warning, not fatal).
func ImpliedVolatility(in Inputs, targetPrice decimal.Decimal, isCall bool) (decimal.Decimal, error) {
	const (
		lo            = 1e-4
		hi            = 5.0
		maxIterations = 100
		tolerance     = 1e-8
	)

	target, _ := targetPrice.Float64()

	priceAt := func(v float64) float64 {
		withVol := in
		withVol.Volatility = decimal.NewFromFloat(v)
		if isCall {
			p, _ := PriceCall(withVol).Float64()
			return p
		}
		p, _ := PricePut(withVol).Float64()
		return p
	}

	a, b := lo, hi
	fa, fb := priceAt(a)-target, priceAt(b)-target
	if fa*fb > 0 {
		return in.Volatility, ErrDidNotConverge
	}

	mid := a
	for i := 0; i < maxIterations; i++ {
		mid = (a + b) / 2
		fm := priceAt(mid) - target

		if math.Abs(fm) < tolerance {
			return decimal.NewFromFloat(mid), nil
		}

		if fa*fm < 0 {
			b, fb = mid, fm
		} else {
			a, fa = mid, fm
		}
	}

	return decimal.NewFromFloat(mid), ErrDidNotConverge
}

func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
