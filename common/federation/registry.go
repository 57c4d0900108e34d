package federation

import (
	"context"
	"math"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/store"
)

// Page is a 1-based pagination window
type Page struct {
	Number int64
	Size   int64
}

// Skip is the number of rows in front of the window. It saturates at
// math.MaxInt64, so a page far past the end is empty rather than wrapping
// around to a negative offset.
func (p Page) Skip() int64 {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt64/p.Size {
		return math.MaxInt64
	}
	return (p.Number - 1) * p.Size
}

// Registry reads the chain directory. It never caches: every call sees the
// directory as it is now.
type Registry struct {
	store store.Store
}

// NewRegistry creates a registry reader over s
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// ListChains returns one page of chains and the directory size. The two
// reads are independent and may observe different points in time.
func (r *Registry) ListChains(ctx context.Context, page Page) ([]models.Chain, int64, error) {
	chains, err := r.store.ListChains(ctx, page.Skip(), page.Size)
	if err != nil {
		return nil, 0, NewError(KindRegistryUnavailable, "chain registry unavailable", err)
	}

	total, err := r.store.CountChains(ctx)
	if err != nil {
		return nil, 0, NewError(KindRegistryUnavailable, "chain registry unavailable", err)
	}

	return chains, total, nil
}

// ListChainNames returns every chain name. Order is not meaningful.
func (r *Registry) ListChainNames(ctx context.Context) ([]string, error) {
	names, err := r.store.ChainNames(ctx)
	if err != nil {
		return nil, NewError(KindRegistryUnavailable, "chain registry unavailable", err)
	}
	return names, nil
}
