package numerics

import "errors"

// ErrDidNotConverge is returned by ImpliedVolatility when the bisection
// search fails to bracket or close on the target price. Per spec.md §7
// this is a warning, not fatal: callers price with the input sigma.
var ErrDidNotConverge = errors.New("implied volatility did not converge")
