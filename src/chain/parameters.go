package chain

import (
	"github.com/shopspring/decimal"
)

// TimeFrame controls step spacing and, via StepYears, the dt used by
// PathGenerator's GBM and BlackScholes strategies.
type TimeFrame string

const (
	TimeFrameMinute TimeFrame = "Minute"
	TimeFrameHour   TimeFrame = "Hour"
	TimeFrameDay    TimeFrame = "Day"
	TimeFrameWeek   TimeFrame = "Week"
	TimeFrameMonth  TimeFrame = "Month"
)

// StepYears returns the year-fraction of a single simulation step for
// this time frame, per spec.md §4.5's table.
func (t TimeFrame) StepYears() decimal.Decimal {
	switch t {
	case TimeFrameMinute:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(252 * 390))
	case TimeFrameHour:
		return decimal.NewFromInt(1).Div(decimal.NewFromFloat(252 * 6.5))
	case TimeFrameDay:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(252))
	case TimeFrameWeek:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(52))
	case TimeFrameMonth:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(12))
	default:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(252))
	}
}

func (t TimeFrame) valid() bool {
	switch t {
	case TimeFrameMinute, TimeFrameHour, TimeFrameDay, TimeFrameWeek, TimeFrameMonth:
		return true
	default:
		return false
	}
}

// MethodKind tags which path-generation strategy a SimulationParameters
// configures (spec.md §3's "tagged variant").
type MethodKind string

const (
	MethodGeometricBrownian MethodKind = "GeometricBrownian"
	MethodHistorical        MethodKind = "Historical"
	MethodBlackScholes      MethodKind = "BlackScholes"
)

// MethodConfig is the tagged union of path-generation configurations.
// Only the fields matching Kind are meaningful.
type MethodConfig struct {
	Kind MethodKind

	// GeometricBrownian
	DT     decimal.Decimal
	Drift  decimal.Decimal
	GBMVol decimal.Decimal

	// Historical
	LookbackDays int
}

func (m MethodConfig) validate() error {
	switch m.Kind {
	case MethodGeometricBrownian:
		if m.DT.LessThanOrEqual(decimal.Zero) {
			return NewValidationError("method.dt", "must be > 0")
		}
		if m.GBMVol.LessThanOrEqual(decimal.Zero) {
			return NewValidationError("method.volatility", "must be > 0")
		}
		return nil
	case MethodHistorical:
		if m.LookbackDays <= 0 {
			return NewValidationError("method.lookback_days", "must be > 0")
		}
		return nil
	case MethodBlackScholes:
		return nil
	default:
		return NewValidationError("method", "unknown method kind")
	}
}

// SimulationParameters is the client-facing configuration of a session,
// per spec.md §3.
type SimulationParameters struct {
	Symbol            string
	InitialPrice      decimal.Decimal
	DaysToExpiration  decimal.Decimal
	Volatility        decimal.Decimal
	RiskFreeRate      decimal.Decimal
	DividendYield     decimal.Decimal
	Method            MethodConfig
	TimeFrame         TimeFrame
	ChainSize         int
	StrikeInterval    decimal.Decimal
	SmileCurve        decimal.Decimal
	Spread            decimal.Decimal
	Steps             int
}

const (
	DefaultChainSize   = 15
	DefaultSmileCurve  = 0.0005
	DefaultSpread      = 0.02
	DefaultTick        = 0.02
)

// ApplyDefaults fills optional fields left at their zero value with the
// spec-mandated defaults. Call once, right after decoding a request.
func (p *SimulationParameters) ApplyDefaults() {
	if p.ChainSize == 0 {
		p.ChainSize = DefaultChainSize
	}

	if p.StrikeInterval.IsZero() {
		step := p.InitialPrice.Mul(decimal.NewFromFloat(0.01)).Round(0)
		if step.LessThan(decimal.NewFromInt(1)) {
			step = decimal.NewFromInt(1)
		}
		p.StrikeInterval = step
	}

	if p.SmileCurve.IsZero() {
		p.SmileCurve = decimal.NewFromFloat(DefaultSmileCurve)
	}

	if p.Spread.IsZero() {
		p.Spread = decimal.NewFromFloat(DefaultSpread)
	}
}

// Validate enforces every invariant in spec.md §3. ApplyDefaults should
// be called first so that defaulted fields don't spuriously fail the
// "strictly positive" checks below.
func (p *SimulationParameters) Validate() error {
	if p.Symbol == "" {
		return NewValidationError("symbol", "must not be empty")
	}

	if p.InitialPrice.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("initial_price", "must be > 0")
	}

	if p.DaysToExpiration.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("days_to_expiration", "must be > 0")
	}

	if p.Volatility.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("volatility", "must be > 0")
	}

	if p.Volatility.GreaterThan(decimal.NewFromInt(5)) {
		return NewValidationError("volatility", "must be <= 5")
	}

	if p.DividendYield.LessThan(decimal.Zero) {
		return NewValidationError("dividend_yield", "must be >= 0")
	}

	if !p.TimeFrame.valid() {
		return NewValidationError("time_frame", "unrecognized time frame")
	}

	if err := p.Method.validate(); err != nil {
		return err
	}

	if p.ChainSize <= 0 {
		return NewValidationError("chain_size", "must be > 0")
	}

	if p.StrikeInterval.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("strike_interval", "must be > 0")
	}

	if p.Spread.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("spread", "must be > 0 (fractional)")
	}

	if p.Steps <= 0 {
		return NewValidationError("steps", "must be > 0")
	}

	return nil
}

// applyPatch overwrites fields of base with the corresponding field
// from patch wherever fieldsSet marks it present, per spec.md §4.7
// ("fields present in patch overwrite"). `steps` is not patchable
// here: it is ignored even when fieldsSet marks it present, since
// changing it requires PUT per DESIGN NOTES §9's resolved open
// question.
func applyPatch(base *SimulationParameters, patch SimulationParameters, fieldsSet map[string]bool) {
	if fieldsSet["symbol"] {
		base.Symbol = patch.Symbol
	}
	if fieldsSet["initial_price"] {
		base.InitialPrice = patch.InitialPrice
	}
	if fieldsSet["days_to_expiration"] {
		base.DaysToExpiration = patch.DaysToExpiration
	}
	if fieldsSet["volatility"] {
		base.Volatility = patch.Volatility
	}
	if fieldsSet["risk_free_rate"] {
		base.RiskFreeRate = patch.RiskFreeRate
	}
	if fieldsSet["dividend_yield"] {
		base.DividendYield = patch.DividendYield
	}
	if fieldsSet["method"] {
		base.Method = patch.Method
	}
	if fieldsSet["time_frame"] {
		base.TimeFrame = patch.TimeFrame
	}
	if fieldsSet["chain_size"] {
		base.ChainSize = patch.ChainSize
	}
	if fieldsSet["strike_interval"] {
		base.StrikeInterval = patch.StrikeInterval
	}
	if fieldsSet["smile_curve"] {
		base.SmileCurve = patch.SmileCurve
	}
	if fieldsSet["spread"] {
		base.Spread = patch.Spread
	}
}

// pathRelevant reports whether changing from old to new requires
// invalidating a cached path, per spec.md §4.4: changes to
// initial_price/method/volatility/drift do; everything else doesn't.
func pathRelevant(old, next SimulationParameters) bool {
	if !old.InitialPrice.Equal(next.InitialPrice) {
		return true
	}

	if old.Method.Kind != next.Method.Kind {
		return true
	}

	if !old.Volatility.Equal(next.Volatility) {
		return true
	}

	if !old.Method.Drift.Equal(next.Method.Drift) {
		return true
	}

	if !old.Method.GBMVol.Equal(next.Method.GBMVol) {
		return true
	}

	if !old.Method.DT.Equal(next.Method.DT) {
		return true
	}

	if old.Method.LookbackDays != next.Method.LookbackDays {
		return true
	}

	return false
}
