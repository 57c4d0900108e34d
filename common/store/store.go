package store

import (
	"context"
	"errors"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/plan"
)

// Well-known collection names of the persisted layout
const (
	ChainsCollection = "chains"
	UsersCollection  = "users"
	MediaCollection  = "media"
)

// ErrNotFound is returned when a single-document read finds nothing
var ErrNotFound = errors.New("document not found")

// Store is the read contract the federation engine needs from the backing
// document store. Implementations must be safe for concurrent use.
type Store interface {
	// ListChains returns one window of the chain directory
	ListChains(ctx context.Context, skip, limit int64) ([]models.Chain, error)

	// CountChains returns the size of the chain directory
	CountChains(ctx context.Context) (int64, error)

	// ChainNames returns every distinct chain name, in no particular order
	ChainNames(ctx context.Context) ([]string, error)

	// FindNode reads one node by id from a node collection
	FindNode(ctx context.Context, collection, id string) (*models.Node, error)

	// FindMedia reads the singleton media document
	FindMedia(ctx context.Context) (models.Media, error)

	// Execute runs a federated plan as one server-side operation and
	// returns the fully materialized rows
	Execute(ctx context.Context, p *plan.Plan) ([]models.Row, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
