package chain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionManager is the orchestration façade from spec.md §4.7: it
// coordinates SessionStore, StateMachine, PathCache, PathGenerator and
// ChainBuilder behind a small set of operations. Per-id operations
// serialize through a striped keyMutex so cross-id work never
// contends, matching spec.md §5's ordering guarantees.
type SessionManager struct {
	store   Store
	history HistoricalPriceSource
	paths   *PathCache
	pathgen *PathGenerator
	builder *ChainBuilder
	minter  *IdentityMinter
	locks   *keyMutex
	ttl     time.Duration
}

// NewSessionManager wires the façade's collaborators. tick and ttl come
// from ambient configuration (SPEC_FULL.md §6.1).
func NewSessionManager(store Store, history HistoricalPriceSource, tick decimal.Decimal, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store:   store,
		history: history,
		paths:   NewPathCache(),
		pathgen: NewPathGenerator(history),
		builder: NewChainBuilder(tick),
		minter:  NewIdentityMinter(),
		locks:   newKeyMutex(),
		ttl:     ttl,
	}
}

// CreateSession validates params, mints an id, and persists a new
// Initialized session. It never eagerly builds a path (spec.md §4.7).
// A Historical method is additionally checked against the injected
// HistoricalPriceSource's symbol catalog here — not at JSON-decode
// time, since the source is a collaborator the DTO layer never sees
// (SPEC_FULL.md §3's resolved Method/TimeFrame agreement rule).
func (m *SessionManager) CreateSession(ctx context.Context, params SimulationParameters) (*Session, error) {
	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if params.Method.Kind == MethodHistorical {
		if err := m.checkSymbolKnown(ctx, params.Symbol); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	id := m.minter.Next()

	state, err := Advance(0, EventCreated, 0, params.Steps)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:          id,
		CreatedAt:   now,
		UpdatedAt:   now,
		Parameters:  params,
		CurrentStep: 0,
		TotalSteps:  params.Steps,
		State:       state,
	}

	if err := m.store.Save(session); err != nil {
		return nil, err
	}

	return session.clone(), nil
}

// GetNextStep advances a session one step, pricing the chain at the
// new cursor. If the Read transition fails (AlreadyCompleted,
// InErrorState), the session is left unchanged.
func (m *SessionManager) GetNextStep(ctx context.Context, id uuid.UUID) (*Session, *OptionChain, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	session, err := m.store.Get(id)
	if err != nil {
		return nil, nil, err
	}

	nextCursor := session.CurrentStep + 1
	if nextCursor > session.TotalSteps {
		nextCursor = session.TotalSteps
	}

	nextState, err := Advance(session.State, EventRead, nextCursor, session.TotalSteps)
	if err != nil {
		// State errors leave the session unchanged per spec.md §7.
		return nil, nil, err
	}

	path, err := m.paths.GetOrBuild(session.ID, func() (PricePath, error) {
		return m.pathgen.Generate(ctx, session)
	})
	if err != nil {
		return m.failSession(session, err)
	}

	session.CurrentStep = nextCursor
	session.State = nextState
	session.UpdatedAt = time.Now().UTC()

	spot := path[session.CurrentStep]
	stepDuration := stepDurationFor(session.Parameters.TimeFrame)
	timestamp := session.CreatedAt.Add(time.Duration(session.CurrentStep) * stepDuration)

	timeToExpiry := session.Parameters.DaysToExpiration.Div(decimal.NewFromInt(365))

	built, err := m.builder.Build(session.ID, decimal.NewFromFloat(spot), session.Parameters, timeToExpiry, timestamp)
	if err != nil {
		return m.failSession(session, err)
	}

	if err := m.store.Save(session); err != nil {
		return nil, nil, err
	}

	return session.clone(), built, nil
}

// UpdateSession applies a partial parameter patch. current_step and
// total_steps are never touched by PATCH (DESIGN NOTES §9's resolved
// open question); only PUT reinitializes.
func (m *SessionManager) UpdateSession(id uuid.UUID, patch SimulationParameters, fieldsSet map[string]bool) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	session, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	merged := session.Parameters
	applyPatch(&merged, patch, fieldsSet)
	merged.ApplyDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	nextState, err := Advance(session.State, EventPatched, session.CurrentStep, session.TotalSteps)
	if err != nil {
		return nil, err
	}

	invalidate := pathRelevant(session.Parameters, merged)

	session.Parameters = merged
	session.State = nextState
	session.UpdatedAt = time.Now().UTC()

	if invalidate {
		m.paths.Invalidate(id)
	}

	if err := m.store.Save(session); err != nil {
		return nil, err
	}

	return session.clone(), nil
}

// ReinitializeSession fully replaces params, resets the cursor, and
// always invalidates the cached path (spec.md §4.7).
func (m *SessionManager) ReinitializeSession(id uuid.UUID, params SimulationParameters) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	session, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	nextState, err := Advance(session.State, EventReplaced, 0, params.Steps)
	if err != nil {
		return nil, err
	}

	session.Parameters = params
	session.CurrentStep = 0
	session.TotalSteps = params.Steps
	session.State = nextState
	session.UpdatedAt = time.Now().UTC()

	m.paths.Invalidate(id)

	if err := m.store.Save(session); err != nil {
		return nil, err
	}

	return session.clone(), nil
}

// DeleteSession removes the session and its cached path atomically
// (from the caller's point of view: the per-id lock makes the pair
// appear as one operation).
func (m *SessionManager) DeleteSession(id uuid.UUID) bool {
	unlock := m.locks.lock(id)
	defer func() {
		unlock()
		m.locks.forget(id)
	}()

	removed := m.store.Delete(id)
	m.paths.Invalidate(id)

	return removed
}

// CleanupSessions invokes the store's TTL sweep and drops each
// reclaimed session's cached path, returning the reclaimed count.
func (m *SessionManager) CleanupSessions() int {
	reclaimed := m.store.Cleanup(m.ttl)
	for _, id := range reclaimed {
		m.paths.Invalidate(id)
		m.locks.forget(id)
	}
	return len(reclaimed)
}

// failSession forces the session into the Error state on an internal
// Bug, or leaves it unchanged and propagates a retryable External
// error, per spec.md §7's propagation rules.
func (m *SessionManager) failSession(session *Session, cause error) (*Session, *OptionChain, error) {
	se, ok := cause.(*SessionError)
	if !ok || !isFatalKind(se.Kind) {
		return nil, nil, cause
	}

	session.State = StateError
	session.UpdatedAt = time.Now().UTC()
	_ = m.store.Save(session)

	return nil, nil, cause
}

// isFatalKind decides which path-build failures force a session to
// Error versus which leave it unchanged for a retry, resolving a
// tension between spec.md §7's general rule ("External errors...leave
// the session unchanged, retryable") and §8 scenario 6's explicit
// "session state transitions to Error" for InsufficientHistory.
// InsufficientHistory is treated as fatal here because it is a
// structural property of the session's own parameters (lookback vs.
// total_steps): retrying without a PATCH/PUT can never succeed, unlike
// DataSourceUnavailable/StoreTimeout, which are transient network
// conditions and remain retryable.
func isFatalKind(k ErrorKind) bool {
	switch k {
	case KindNumericUnderflow, KindBug, KindInsufficientHistory:
		return true
	default:
		return false
	}
}

// checkSymbolKnown consults the injected HistoricalPriceSource's
// catalog. A nil source (no historical collaborator configured) or a
// lookup failure surfaces as DataSourceUnavailable, since the check
// can't be completed; a completed lookup that doesn't list the symbol
// is a client-input problem, surfaced as InvalidParameter.
func (m *SessionManager) checkSymbolKnown(ctx context.Context, symbol string) error {
	if m.history == nil {
		return NewError(KindDataSourceUnavailable, "no historical price source configured")
	}

	symbols, err := m.history.ListAvailableSymbols(ctx)
	if err != nil {
		return WrapError(KindDataSourceUnavailable, "failed to list historical symbols", err)
	}

	for _, s := range symbols {
		if s == symbol {
			return nil
		}
	}

	return NewValidationError("symbol", "unknown to the configured historical price source: "+symbol)
}

func stepDurationFor(tf TimeFrame) time.Duration {
	switch tf {
	case TimeFrameMinute:
		return time.Minute
	case TimeFrameHour:
		return time.Hour
	case TimeFrameDay:
		return 24 * time.Hour
	case TimeFrameWeek:
		return 7 * 24 * time.Hour
	case TimeFrameMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
