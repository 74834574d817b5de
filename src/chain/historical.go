package chain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalPriceSource is the external collaborator PathGenerator
// consults when a session's method is Historical (spec.md §6). It is
// specified here, not implemented: the reference in-memory
// implementation lives in package historical, outside the engine core
// per spec.md §1's scope boundary.
type HistoricalPriceSource interface {
	GetHistoricalPrices(ctx context.Context, symbol string, tf TimeFrame, start, end time.Time) ([]decimal.Decimal, error)
	ListAvailableSymbols(ctx context.Context) ([]string, error)
	GetDateRangeForSymbol(ctx context.Context, symbol string) (earliest, latest time.Time, err error)
}
