package federation

import (
	"fmt"
	"strings"
)

// maxChainNameLen keeps resolved names well under MongoDB's namespace limit
const maxChainNameLen = 120

// Resolver maps a chain name to the physical collection holding its nodes.
// It is called per request because the set of chains is only known at
// query time.
type Resolver interface {
	Resolve(chain string) string
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(chain string) string

// Resolve implements Resolver
func (f ResolverFunc) Resolve(chain string) string {
	return f(chain)
}

// PrefixResolver names collections "<Prefix><chain>", e.g. treeNodesGold
type PrefixResolver struct {
	Prefix string
}

// Resolve implements Resolver
func (r PrefixResolver) Resolve(chain string) string {
	return r.Prefix + chain
}

// ValidateChainName rejects names that cannot safely become a collection
// name. Callers run it before Resolve.
func ValidateChainName(name string) error {
	switch {
	case name == "":
		return NewError(KindConfiguration, "chain registry contains an empty chain name", nil)
	case len(name) > maxChainNameLen:
		return NewError(KindConfiguration, "chain registry contains an over-long chain name", nil)
	case strings.ContainsRune(name, 0):
		return NewError(KindConfiguration, "chain registry contains a malformed chain name",
			fmt.Errorf("chain name %q contains NUL", name))
	case strings.HasPrefix(name, "$"), strings.HasPrefix(name, "."):
		return NewError(KindConfiguration, "chain registry contains a malformed chain name",
			fmt.Errorf("chain name %q has a reserved prefix", name))
	}
	return nil
}
