package chain

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ocsim/optionchain-simulator/src/utils"
)

// PathGenerator produces a session's deterministic PricePath, branching
// on parameters.Method per spec.md §4.5. It holds no mutable state of
// its own: determinism comes entirely from hashing (session.ID,
// parameters) into a PRNG seed, never from a package-level generator
// (DESIGN NOTES §9).
type PathGenerator struct {
	History HistoricalPriceSource
}

func NewPathGenerator(history HistoricalPriceSource) *PathGenerator {
	return &PathGenerator{History: history}
}

// Generate builds the path for s. The returned slice always has length
// s.TotalSteps+1, index 0 being the initial spot.
func (g *PathGenerator) Generate(ctx context.Context, s *Session) (PricePath, error) {
	switch s.Parameters.Method.Kind {
	case MethodGeometricBrownian:
		return g.generateGBM(s)
	case MethodHistorical:
		return g.generateHistorical(ctx, s)
	case MethodBlackScholes:
		return g.generateBlackScholes(s)
	default:
		return nil, NewError(KindBug, "unknown method kind reached PathGenerator")
	}
}

// seed derives a deterministic PRNG seed from (session.ID, parameters),
// grounded on the teacher's src/utils.HashStruct content-hashing
// helper: hash the identity + digest, then fold the first 8 hash bytes
// into a uint64. Any byte-identical (id, parameters) pair always
// produces the same seed, and hence the same path, across processes.
func seed(s *Session) (uint64, error) {
	digest, err := utils.HashStruct(struct {
		ID     string
		Params SimulationParameters
	}{ID: s.ID.String(), Params: s.Parameters})
	if err != nil {
		return 0, WrapError(KindBug, "failed to hash session identity for path seeding", err)
	}

	// digest is a 64-character hex SHA-256 string; the first 16 hex
	// characters (8 bytes) are ample entropy for a PRNG seed.
	n, err := strconv.ParseUint(digest[:16], 16, 64)
	if err != nil {
		return 0, WrapError(KindBug, "failed to parse path seed", err)
	}

	return n, nil
}

func newPRNG(s uint64) *rand.Rand {
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

func standardNormal(r *rand.Rand) float64 {
	u1 := r.Float64()
	u2 := r.Float64()
	if u1 <= 0 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func (g *PathGenerator) generateGBM(s *Session) (PricePath, error) {
	sd, err := seed(s)
	if err != nil {
		return nil, err
	}
	r := newPRNG(sd)

	dt, _ := s.Parameters.Method.DT.Float64()
	drift, _ := s.Parameters.Method.Drift.Float64()
	vol, _ := s.Parameters.Method.GBMVol.Float64()
	spot0, _ := s.Parameters.InitialPrice.Float64()

	path := make(PricePath, s.TotalSteps+1)
	path[0] = spot0

	spot := spot0
	for k := 1; k <= s.TotalSteps; k++ {
		z := standardNormal(r)
		ret := (drift-0.5*vol*vol)*dt + vol*math.Sqrt(dt)*z
		next := spot * math.Exp(ret)

		if math.IsInf(next, 0) || next <= 0 {
			return nil, NewError(KindNumericUnderflow, "GBM path step produced a non-positive price")
		}

		path[k] = next
		spot = next
	}

	return path, nil
}

func (g *PathGenerator) generateBlackScholes(s *Session) (PricePath, error) {
	dt := s.Parameters.TimeFrame.StepYears()
	r, _ := s.Parameters.RiskFreeRate.Float64()
	q, _ := s.Parameters.DividendYield.Float64()
	dtF, _ := dt.Float64()
	spot0, _ := s.Parameters.InitialPrice.Float64()

	path := make(PricePath, s.TotalSteps+1)
	path[0] = spot0

	growth := math.Exp((r - q) * dtF)
	spot := spot0
	for k := 1; k <= s.TotalSteps; k++ {
		spot *= growth
		if spot <= 0 || math.IsInf(spot, 0) {
			return nil, NewError(KindNumericUnderflow, "BlackScholes path step produced a non-positive price")
		}
		path[k] = spot
	}

	return path, nil
}

// generateHistorical bootstraps returns from an empirical OHLCV series
// fetched from g.History, per spec.md §4.5's chosen resolution of the
// bootstrap-vs-replay open question (DESIGN NOTES §9).
func (g *PathGenerator) generateHistorical(ctx context.Context, s *Session) (PricePath, error) {
	lookback := s.Parameters.Method.LookbackDays
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookback)

	bars, err := g.History.GetHistoricalPrices(ctx, s.Parameters.Symbol, s.Parameters.TimeFrame, start, end)
	if err != nil {
		return nil, err
	}

	if len(bars) < s.TotalSteps {
		return nil, NewError(KindInsufficientHistory, "historical series shorter than total_steps")
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Float64()
		cur, _ := bars[i].Float64()
		if prev <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}

	if len(returns) == 0 {
		return nil, NewError(KindInsufficientHistory, "historical series has no usable returns")
	}

	// montanaflynn/stats supplies the empirical mean/stddev of the
	// return series (SPEC_FULL.md DOMAIN STACK item 3), used here to
	// winsorize the bootstrap pool to +/-4 standard deviations: a single
	// extreme historical bar would otherwise be drawn as if it were as
	// representative as any other sample.
	meanRet, err := stats.Mean(returns)
	if err != nil {
		return nil, WrapError(KindBug, "failed to compute mean of historical returns", err)
	}
	stddevRet, err := stats.StandardDeviation(returns)
	if err != nil {
		return nil, WrapError(KindBug, "failed to compute stddev of historical returns", err)
	}

	lo, hi := meanRet-4*stddevRet, meanRet+4*stddevRet
	for i, ret := range returns {
		if ret < lo {
			returns[i] = lo
		} else if ret > hi {
			returns[i] = hi
		}
	}

	sd, err := seed(s)
	if err != nil {
		return nil, err
	}
	r := newPRNG(sd)

	spot0, _ := s.Parameters.InitialPrice.Float64()
	path := make(PricePath, s.TotalSteps+1)
	path[0] = spot0

	spot := spot0
	for k := 1; k <= s.TotalSteps; k++ {
		idx := r.IntN(len(returns))
		ret := returns[idx]

		next := spot * math.Exp(ret)
		if next <= 0 || math.IsInf(next, 0) {
			return nil, NewError(KindNumericUnderflow, "historical bootstrap step produced a non-positive price")
		}

		path[k] = next
		spot = next
	}

	return path, nil
}
