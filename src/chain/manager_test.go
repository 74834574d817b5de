package chain

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *SessionManager {
	return NewSessionManager(NewMemoryStore(), nil, decimal.NewFromFloat(0.02), 30*time.Minute)
}

func gbmParams(steps int) SimulationParameters {
	return SimulationParameters{
		Symbol:           "AAPL",
		InitialPrice:     decimal.NewFromFloat(185.5),
		DaysToExpiration: decimal.NewFromInt(45),
		Volatility:       decimal.NewFromFloat(0.25),
		RiskFreeRate:     decimal.NewFromFloat(0.04),
		DividendYield:    decimal.NewFromFloat(0.005),
		Method: MethodConfig{
			Kind:   MethodGeometricBrownian,
			DT:     decimal.NewFromFloat(0.004),
			Drift:  decimal.NewFromFloat(0.05),
			GBMVol: decimal.NewFromFloat(0.25),
		},
		TimeFrame: TimeFrameDay,
		Steps:     steps,
	}
}

// Scenario 1: create/read/delete.
func TestScenarioCreateReadDelete(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(10))
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, session.State)
	assert.Equal(t, 0, session.CurrentStep)

	got, built, err := m.GetNextStep(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, got.State)
	assert.Equal(t, 1, got.CurrentStep)
	require.Len(t, built.Contracts, DefaultChainSize)

	for i := 1; i < len(built.Contracts); i++ {
		assert.True(t, built.Contracts[i-1].Strike.LessThanOrEqual(built.Contracts[i].Strike))
	}

	removed := m.DeleteSession(session.ID)
	assert.True(t, removed)
}

// Scenario 2: completion then AlreadyCompleted.
func TestScenarioCompletion(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(2))
	require.NoError(t, err)

	_, _, err = m.GetNextStep(context.Background(), session.ID)
	require.NoError(t, err)

	got, _, err := m.GetNextStep(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
	assert.Equal(t, 2, got.CurrentStep)

	_, _, err = m.GetNextStep(context.Background(), session.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyCompleted))
}

// Scenario 3: patch mid-run changes volatility without touching the cursor.
func TestScenarioPatchMidRun(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(10))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := m.GetNextStep(context.Background(), session.ID)
		require.NoError(t, err)
	}

	patched, err := m.UpdateSession(session.ID, SimulationParameters{Volatility: decimal.NewFromFloat(0.4)}, map[string]bool{"volatility": true})
	require.NoError(t, err)
	assert.Equal(t, StateModified, patched.State)
	assert.Equal(t, 3, patched.CurrentStep)
	assert.True(t, patched.Parameters.Volatility.Equal(decimal.NewFromFloat(0.4)))

	got, _, err := m.GetNextStep(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, got.State)
	assert.Equal(t, 4, got.CurrentStep)
}

// Scenario 4: PUT reinitializes with a new step budget.
func TestScenarioReplace(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(10))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := m.GetNextStep(context.Background(), session.ID)
		require.NoError(t, err)
	}

	newParams := gbmParams(30)
	replaced, err := m.ReinitializeSession(session.ID, newParams)
	require.NoError(t, err)
	assert.Equal(t, StateReinitialized, replaced.State)
	assert.Equal(t, 0, replaced.CurrentStep)
	assert.Equal(t, 30, replaced.TotalSteps)

	got, _, err := m.GetNextStep(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)
}

// Scenario 5: TTL reclaim via CleanupSessions.
func TestScenarioTTLReclaim(t *testing.T) {
	store := NewMemoryStore()
	m := NewSessionManager(store, nil, decimal.NewFromFloat(0.02), 10*time.Millisecond)

	session, err := m.CreateSession(context.Background(), gbmParams(5))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	n := m.CleanupSessions()
	assert.Equal(t, 1, n)

	_, _, err = m.GetNextStep(context.Background(), session.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

// Scenario 6: Historical method with insufficient data errors the session.
func TestScenarioHistoricalInsufficientData(t *testing.T) {
	store := NewMemoryStore()
	m := NewSessionManager(store, &shortHistorySource{}, decimal.NewFromFloat(0.02), 30*time.Minute)

	params := gbmParams(30)
	params.Method = MethodConfig{Kind: MethodHistorical, LookbackDays: 5}

	session, err := m.CreateSession(context.Background(), params)
	require.NoError(t, err)

	_, _, err = m.GetNextStep(context.Background(), session.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInsufficientHistory))

	stored, getErr := store.Get(session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StateError, stored.State)

	_, _, err = m.GetNextStep(context.Background(), session.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInErrorState))
}

type shortHistorySource struct{}

func (shortHistorySource) GetHistoricalPrices(ctx context.Context, symbol string, tf TimeFrame, start, end time.Time) ([]decimal.Decimal, error) {
	return []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(101)}, nil
}

func (shortHistorySource) ListAvailableSymbols(ctx context.Context) ([]string, error) {
	return []string{"AAPL"}, nil
}

func (shortHistorySource) GetDateRangeForSymbol(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, nil
}

// CreateSession rejects a Historical method whose symbol the injected
// HistoricalPriceSource doesn't list (SPEC_FULL.md §3's Method/TimeFrame
// agreement rule, checked at create_session rather than decode time).
func TestCreateSessionRejectsUnknownHistoricalSymbol(t *testing.T) {
	store := NewMemoryStore()
	m := NewSessionManager(store, &shortHistorySource{}, decimal.NewFromFloat(0.02), 30*time.Minute)

	params := gbmParams(10)
	params.Symbol = "ZZZZ"
	params.Method = MethodConfig{Kind: MethodHistorical, LookbackDays: 5}

	_, err := m.CreateSession(context.Background(), params)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

// Idempotence: two consecutive identical PATCHes converge to the same state.
func TestIdempotentPatches(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(10))
	require.NoError(t, err)

	patch := SimulationParameters{Volatility: decimal.NewFromFloat(0.3)}
	fields := map[string]bool{"volatility": true}

	first, err := m.UpdateSession(session.ID, patch, fields)
	require.NoError(t, err)

	second, err := m.UpdateSession(session.ID, patch, fields)
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.True(t, first.Parameters.Volatility.Equal(second.Parameters.Volatility))
	assert.Equal(t, first.CurrentStep, second.CurrentStep)
}

// Round-trip: POST then DELETE leaves the store size unchanged.
func TestPostThenDeleteRoundTrip(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(5))
	require.NoError(t, err)

	assert.True(t, m.DeleteSession(session.ID))

	_, err = m.store.Get(session.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPatchVolatilityZeroRejected(t *testing.T) {
	m := newTestManager()

	session, err := m.CreateSession(context.Background(), gbmParams(5))
	require.NoError(t, err)

	_, err = m.UpdateSession(session.ID, SimulationParameters{Volatility: decimal.Zero}, map[string]bool{"volatility": true})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}
