package chain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ocsim/optionchain-simulator/src/logger"
	"github.com/ocsim/optionchain-simulator/src/numerics"
)

// OptionQuote is a bid/ask/mid/delta leg of a contract. Bid/Ask/Mid are
// nil when the theoretical mid falls below the minimum tick (spec.md
// §4.6 step 4); Delta is always present.
type OptionQuote struct {
	Bid   *decimal.Decimal
	Ask   *decimal.Decimal
	Mid   *decimal.Decimal
	Delta decimal.Decimal
}

// OptionContract is one strike's call/put pair plus the IV and gamma
// used to price it.
type OptionContract struct {
	Strike            decimal.Decimal
	Expiration        time.Time
	Call              OptionQuote
	Put               OptionQuote
	ImpliedVolatility decimal.Decimal
	Gamma             decimal.Decimal
}

// OptionChain is the priced grid returned by a GET. Stateless,
// caller-owned once built (no mutable shared state in ChainBuilder).
type OptionChain struct {
	Underlying string
	Timestamp  time.Time
	Price      decimal.Decimal
	Contracts  []OptionContract
}

// ChainBuilder turns (spot, parameters, time-to-expiry) into a priced
// OptionChain with Greeks, per spec.md §4.6. It holds no state; all
// pricing math is delegated to package numerics, kept out of the data
// model per DESIGN NOTES §9 ("pricing library dependency").
type ChainBuilder struct {
	Tick decimal.Decimal
}

func NewChainBuilder(tick decimal.Decimal) *ChainBuilder {
	return &ChainBuilder{Tick: tick}
}

// Build prices a full chain for spot at the given time to expiry
// (years) and wall-clock timestamp. sessionID is carried through only
// for the put-call parity warning's logging context (spec.md §7:
// "Numeric warnings are logged").
func (b *ChainBuilder) Build(sessionID uuid.UUID, spot decimal.Decimal, p SimulationParameters, timeToExpiry decimal.Decimal, timestamp time.Time) (*OptionChain, error) {
	strikes := b.strikeLadder(spot, p)

	expiration := timestamp.Add(daysToDuration(p.DaysToExpiration))

	contracts := make([]OptionContract, 0, len(strikes))
	for _, k := range strikes {
		c, err := b.priceStrike(sessionID, spot, k, p, timeToExpiry, expiration)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}

	return &OptionChain{
		Underlying: p.Symbol,
		Timestamp:  timestamp,
		Price:      spot,
		Contracts:  contracts,
	}, nil
}

// strikeLadder builds N strikes spaced d apart around spot, rounded to
// 2 decimals and filtered to strictly positive, per spec.md §4.6 step 1.
func (b *ChainBuilder) strikeLadder(spot decimal.Decimal, p SimulationParameters) []decimal.Decimal {
	n := p.ChainSize
	d := p.StrikeInterval

	half := decimal.NewFromFloat(float64(n-1)).Div(decimal.NewFromInt(2))

	strikes := make([]decimal.Decimal, 0, n)
	for i := 0; i < n; i++ {
		offset := decimal.NewFromInt(int64(i)).Sub(half)
		k := spot.Add(offset.Mul(d)).Round(2)
		if k.GreaterThan(decimal.Zero) {
			strikes = append(strikes, k)
		}
	}

	return strikes
}

// smileVol returns sigma(K) per spec.md §4.6 step 2, clamped to >= 1e-4.
func smileVol(baseVol, spot, strike, smileCurve decimal.Decimal) decimal.Decimal {
	moneyness := strike.Sub(spot).Div(spot)
	adj := decimal.NewFromInt(1).Add(smileCurve.Mul(moneyness.Mul(moneyness)))
	v := baseVol.Mul(adj)

	floor := decimal.NewFromFloat(1e-4)
	if v.LessThan(floor) {
		return floor
	}
	return v
}

func (b *ChainBuilder) priceStrike(sessionID uuid.UUID, spot, strike decimal.Decimal, p SimulationParameters, timeToExpiry decimal.Decimal, expiration time.Time) (*OptionContract, error) {
	iv := smileVol(p.Volatility, spot, strike, p.SmileCurve)

	in := numerics.Inputs{
		Spot:          spot,
		Strike:        strike,
		TimeToExpiry:  timeToExpiry,
		RiskFreeRate:  p.RiskFreeRate,
		DividendYield: p.DividendYield,
		Volatility:    iv,
	}

	callMid := numerics.PriceCall(in)
	putMid := numerics.PricePut(in)

	// put-call parity sanity check: |C - P - (S*e^-qT - K*e^-rT)| < 1e-6*S.
	// A deviation only warrants a warning (spec.md §4.6 step 3, §7
	// "Numeric warnings are logged"); pricing still proceeds with the
	// computed mids.
	deviation := putCallParityDeviation(spot, strike, timeToExpiry, p, callMid, putMid)
	tolerance := spot.Mul(decimal.NewFromFloat(1e-6))
	if deviation.GreaterThan(tolerance) {
		logger.WithSession(sessionID).WithFields(logrus.Fields{
			"strike":    strike,
			"deviation": deviation,
		}).Warn("put-call parity deviation exceeds tolerance")
	}

	callQuote := b.quote(callMid, numerics.CallDelta(in), p.Spread)
	putQuote := b.quote(putMid, numerics.PutDelta(in), p.Spread)

	return &OptionContract{
		Strike:            strike,
		Expiration:        expiration,
		Call:              callQuote,
		Put:               putQuote,
		ImpliedVolatility: iv,
		Gamma:             numerics.Gamma(in),
	}, nil
}

func putCallParityDeviation(spot, strike, timeToExpiry decimal.Decimal, p SimulationParameters, call, put decimal.Decimal) decimal.Decimal {
	rt := p.RiskFreeRate.Mul(timeToExpiry)
	qt := p.DividendYield.Mul(timeToExpiry)

	discSpot := spot.Mul(decExp(qt.Neg()))
	discStrike := strike.Mul(decExp(rt.Neg()))

	lhs := call.Sub(put)
	rhs := discSpot.Sub(discStrike)

	return lhs.Sub(rhs).Abs()
}

// quote computes bid/ask/mid per spec.md §4.6 step 4, suppressing all
// three to nil when mid falls below the configured tick.
func (b *ChainBuilder) quote(mid, delta, spread decimal.Decimal) OptionQuote {
	if mid.LessThan(b.Tick) {
		return OptionQuote{Delta: delta}
	}

	half := spread.Div(decimal.NewFromInt(2))
	bid := mid.Mul(decimal.NewFromInt(1).Sub(half)).Round(2)
	ask := mid.Mul(decimal.NewFromInt(1).Add(half)).Round(2)
	midRounded := mid.Round(2)

	return OptionQuote{Bid: &bid, Ask: &ask, Mid: &midRounded, Delta: delta}
}

func daysToDuration(days decimal.Decimal) time.Duration {
	f, _ := days.Float64()
	return time.Duration(f * 24 * float64(time.Hour))
}

// decExp computes e^x for a decimal.Decimal via float64, matching
// numerics' own float64 bridge for transcendental functions decimal.Decimal
// cannot express natively.
func decExp(x decimal.Decimal) decimal.Decimal {
	f, _ := x.Float64()
	return decimal.NewFromFloat(math.Exp(f))
}
