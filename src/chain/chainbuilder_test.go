package chain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() SimulationParameters {
	p := SimulationParameters{
		Symbol:           "AAPL",
		InitialPrice:     decimal.NewFromFloat(185.5),
		DaysToExpiration: decimal.NewFromInt(45),
		Volatility:       decimal.NewFromFloat(0.25),
		RiskFreeRate:     decimal.NewFromFloat(0.04),
		DividendYield:    decimal.NewFromFloat(0.005),
		Method:           MethodConfig{Kind: MethodBlackScholes},
		TimeFrame:        TimeFrameDay,
		Steps:            10,
	}
	p.ApplyDefaults()
	return p
}

func TestChainBuilderStrikeCountAndOrdering(t *testing.T) {
	b := NewChainBuilder(decimal.NewFromFloat(0.02))
	p := testParams()

	chainResult, err := b.Build(uuid.New(), p.InitialPrice, p, decimal.NewFromFloat(45.0/365), time.Now())
	require.NoError(t, err)

	require.Len(t, chainResult.Contracts, p.ChainSize)

	for i := 1; i < len(chainResult.Contracts); i++ {
		assert.True(t, chainResult.Contracts[i-1].Strike.LessThanOrEqual(chainResult.Contracts[i].Strike))
	}
}

func TestChainBuilderDeltaMonotonicity(t *testing.T) {
	b := NewChainBuilder(decimal.NewFromFloat(0.02))
	p := testParams()

	chainResult, err := b.Build(uuid.New(), p.InitialPrice, p, decimal.NewFromFloat(45.0/365), time.Now())
	require.NoError(t, err)

	for i := 1; i < len(chainResult.Contracts); i++ {
		prev := chainResult.Contracts[i-1]
		cur := chainResult.Contracts[i]

		assert.True(t, prev.Call.Delta.GreaterThanOrEqual(cur.Call.Delta),
			"call delta must be non-increasing as strike rises")
		assert.True(t, prev.Put.Delta.GreaterThanOrEqual(cur.Put.Delta),
			"put delta must be non-increasing as strike rises")

		assert.True(t, cur.Gamma.GreaterThanOrEqual(decimal.Zero))
	}
}

func TestChainBuilderDeltaBounds(t *testing.T) {
	b := NewChainBuilder(decimal.NewFromFloat(0.02))
	p := testParams()

	chainResult, err := b.Build(uuid.New(), p.InitialPrice, p, decimal.NewFromFloat(45.0/365), time.Now())
	require.NoError(t, err)

	for _, c := range chainResult.Contracts {
		assert.True(t, c.Call.Delta.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, c.Call.Delta.LessThanOrEqual(decimal.NewFromInt(1)))
		assert.True(t, c.Put.Delta.LessThanOrEqual(decimal.Zero))
		assert.True(t, c.Put.Delta.GreaterThanOrEqual(decimal.NewFromInt(-1)))
	}
}

func TestChainBuilderTickSuppression(t *testing.T) {
	b := NewChainBuilder(decimal.NewFromFloat(50))
	p := testParams()

	chainResult, err := b.Build(uuid.New(), p.InitialPrice, p, decimal.NewFromFloat(45.0/365), time.Now())
	require.NoError(t, err)

	for _, c := range chainResult.Contracts {
		if c.Call.Mid == nil {
			assert.Nil(t, c.Call.Bid)
			assert.Nil(t, c.Call.Ask)
		}
	}
}

func TestSmileVolClampedAndSymmetric(t *testing.T) {
	spot := decimal.NewFromInt(100)
	base := decimal.NewFromFloat(0.2)
	curve := decimal.NewFromFloat(0.0005)

	below := smileVol(base, spot, decimal.NewFromInt(90), curve)
	above := smileVol(base, spot, decimal.NewFromInt(110), curve)
	atm := smileVol(base, spot, spot, curve)

	assert.True(t, atm.Equal(base))
	assert.True(t, below.GreaterThan(base))
	assert.True(t, above.GreaterThan(base))
	assert.True(t, below.Equal(above))

	clamped := smileVol(decimal.NewFromFloat(1e-6), spot, spot, curve)
	assert.True(t, clamped.Equal(decimal.NewFromFloat(1e-4)))
}
