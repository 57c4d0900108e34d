package federation

import (
	"sort"

	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
)

// UserDataField namespaces the joined user fields on a row
const UserDataField = "userData"

// BuildOption adjusts a plan while it is built
type BuildOption func(*plan.Plan)

// WithUserJoin attaches the user directory join. Nodes whose user
// reference does not resolve are dropped.
func WithUserJoin() BuildOption {
	return func(p *plan.Plan) {
		p.Join = &plan.Join{
			From:         store.UsersCollection,
			LocalField:   plan.FieldUser,
			ForeignField: plan.FieldID,
			As:           UserDataField,
		}
	}
}

// Builder turns a set of chain names into one federated plan
type Builder struct {
	resolver Resolver
}

// NewBuilder creates a builder resolving collections with r
func NewBuilder(r Resolver) *Builder {
	return &Builder{resolver: r}
}

// Build returns a plan that is the union of every chain's node collection.
//
// Names are de-duplicated and put in lexical order before the base source
// is picked, so the caller's ordering never shows in the plan or its output.
func (b *Builder) Build(chainNames []string, opts ...BuildOption) (*plan.Plan, error) {
	if len(chainNames) == 0 {
		return nil, NewError(KindNoChainsFound, "Chains not found", nil)
	}

	names := make([]string, 0, len(chainNames))
	seen := make(map[string]struct{}, len(chainNames))
	for _, name := range chainNames {
		if err := ValidateChainName(name); err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	p := &plan.Plan{Sources: make([]plan.Source, 0, len(names))}
	for _, name := range names {
		p.Sources = append(p.Sources, plan.Source{
			Chain:      name,
			Collection: b.resolver.Resolve(name),
		})
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}
