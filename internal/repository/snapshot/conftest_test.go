package snapshot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/dataset"
	"github.com/kailas-cloud/claimsearch/internal/db"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

type mockSource struct {
	set         claim.Set
	err         error
	fingerprint string
	fpErr       error
	loads       int
}

func (m *mockSource) Load(_ context.Context) (claim.Set, error) {
	m.loads++
	return m.set, m.err
}

func (m *mockSource) Fingerprint(_ context.Context) (string, error) {
	return m.fingerprint, m.fpErr
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func sampleSet() claim.Set {
	return dataset.Build([]claim.Fields{
		{
			ClaimNumber: "C1", ClaimType: "SUIT", AgencyParent: "North",
			AssertedDate: "2019-04-12", TotalIncurred: 12.5, NoteType: "ADJUSTER",
			Note: sql.NullString{String: "Back pain, MRI.", Valid: true},
		},
		{ClaimNumber: "C2", ClaimType: "CLAIM"},
	})
}

func newTestProvider(t *testing.T, src *mockSource) (*Provider, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(src, ms, "test:", time.Minute, nil, zap.NewNop()), ms
}
