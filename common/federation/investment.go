package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/store"
	"golang.org/x/sync/errgroup"
)

// Aggregator computes invested capital for a page of chains
type Aggregator struct {
	store       store.Store
	resolver    Resolver
	concurrency int
}

// NewAggregator creates an aggregator issuing at most concurrency root
// reads at a time (1 means strictly sequential)
func NewAggregator(s store.Store, r Resolver, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{store: s, resolver: r, concurrency: concurrency}
}

// Compute reads each chain's root node once, sets chain.Investment to
// root.totalMembers * seedAmount and returns the sum over the page.
// Chains are updated in place.
func (a *Aggregator) Compute(ctx context.Context, chains []models.Chain) (float64, error) {
	for i := range chains {
		if err := ValidateChainName(chains[i].Name); err != nil {
			return 0, err
		}
	}

	members := make([]int64, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range chains {
		chain := chains[i]
		g.Go(func() error {
			root, err := a.store.FindNode(gctx, a.resolver.Resolve(chain.Name), chain.RootNode)
			if errors.Is(err, store.ErrNotFound) {
				return NewError(KindRootNodeMissing, "chain root node is missing",
					fmt.Errorf("chain %q root %q", chain.Name, chain.RootNode))
			}
			if err != nil {
				return NewError(KindStore, "failed to read chain root node", err)
			}
			members[i] = root.TotalMembers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// summed in page order so the total does not depend on read timing
	var total float64
	for i := range chains {
		chains[i].Investment = float64(members[i]) * chains[i].SeedAmount
		total += chains[i].Investment
	}
	return total, nil
}
