package historical

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

func TestGetHistoricalPricesDeterministic(t *testing.T) {
	src := NewMemorySource()
	ctx := context.Background()
	start := time.Now().AddDate(0, 0, -30)
	end := time.Now()

	a, err := src.GetHistoricalPrices(ctx, "AAPL", chain.TimeFrameDay, start, end)
	require.NoError(t, err)

	b, err := src.GetHistoricalPrices(ctx, "AAPL", chain.TimeFrameDay, start, end)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.True(t, a[i].Equal(b[i]))
		assert.True(t, a[i].IsPositive())
	}
}

func TestGetHistoricalPricesUnknownSymbol(t *testing.T) {
	src := NewMemorySource()
	_, err := src.GetHistoricalPrices(context.Background(), "ZZZZ", chain.TimeFrameDay, time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)
	assert.True(t, chain.IsKind(err, chain.KindSymbolUnknown))
}

func TestListAvailableSymbols(t *testing.T) {
	src := NewMemorySource()
	symbols, err := src.ListAvailableSymbols(context.Background())
	require.NoError(t, err)
	assert.Contains(t, symbols, "AAPL")
}
