package health

import (
	"context"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// DatasetLoader provides the base record set.
type DatasetLoader interface {
	Load(ctx context.Context) (claim.Set, error)
}

// CachePinger checks snapshot cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
