package domain

import "errors"

// Error taxonomy for the rollup core. All failures surface to the caller as
// one of these, wrapped with context via fmt.Errorf("...: %w", ...).
// Division guards are not errors: they appear as null fields on the
// affected rollup entry while the request succeeds.
var (
	// ErrDataIntegrity marks malformed or non-finite ledger values. Aborts
	// the whole aggregation for the affected user.
	ErrDataIntegrity = errors.New("ledger data integrity violation")

	// ErrUnknownAsset marks an asset name with no catalogue mapping. Fails
	// the whole request: a partial rollup would misstate portfolio totals.
	ErrUnknownAsset = errors.New("asset has no catalogue mapping")

	// ErrEnrichmentUnavailable marks an unreachable or timed-out market
	// feed. Fails the whole request; retry policy belongs to the caller.
	ErrEnrichmentUnavailable = errors.New("market data unavailable")
)
