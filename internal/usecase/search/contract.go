package search

import (
	"context"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// BaseProvider supplies the base record set. Load is idempotent and its
// result may be cached for the lifetime of the process.
type BaseProvider interface {
	Load(ctx context.Context) (claim.Set, error)
}

// StageObserver receives a report each time a stage finishes, whether it ran
// or was skipped. Implementations must be safe for concurrent use.
type StageObserver interface {
	ObserveStage(report StageReport)
}
