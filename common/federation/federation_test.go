package federation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/store"
	"github.com/lyzr/chainquery/common/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var prefix = PrefixResolver{Prefix: "treeNodes"}

func fixture() *memstore.Store {
	s := memstore.New().
		AddChains(
			models.Chain{ID: "c1", Name: "Gold", SeedAmount: 100, RootNode: "g-root"},
			models.Chain{ID: "c2", Name: "Silver", SeedAmount: 50, RootNode: "s-root"},
		).
		AddNodes("treeNodesGold",
			models.Node{ID: "g-root", NodeID: 1, TotalMembers: 5, User: "u1"},
			models.Node{ID: "g-2", NodeID: 2, TotalMembers: 4, User: "u2"},
		).
		AddNodes("treeNodesSilver",
			models.Node{ID: "s-root", NodeID: 1, TotalMembers: 3, User: "u3"},
			models.Node{ID: "s-42", NodeID: 42, TotalMembers: 1, User: "u4"},
		).
		AddUsers(
			models.User{ID: "u1", UserName: "alice"},
			models.User{ID: "u2", UserName: "bob"},
			models.User{ID: "u3", UserName: "carol"},
			models.User{ID: "u4", UserName: "dave"},
		)
	return s
}

func TestPage_Skip(t *testing.T) {
	assert.Equal(t, int64(0), Page{Number: 1, Size: 10}.Skip())
	assert.Equal(t, int64(20), Page{Number: 3, Size: 10}.Skip())
	assert.Equal(t, int64(0), Page{Number: 0, Size: 10}.Skip())
	assert.Equal(t, int64(math.MaxInt64), Page{Number: 922337203685477580, Size: 100}.Skip())
	assert.Equal(t, int64(math.MaxInt64), Page{Number: math.MaxInt64, Size: 2}.Skip())
}

func TestRegistry_ListChains_PageFarPastEnd(t *testing.T) {
	chains, total, err := NewRegistry(fixture()).ListChains(context.Background(), Page{Number: 922337203685477580, Size: 100})
	require.NoError(t, err)
	assert.Empty(t, chains)
	assert.Equal(t, int64(2), total)
}

func TestRegistry_ListChains(t *testing.T) {
	chains, total, err := NewRegistry(fixture()).ListChains(context.Background(), Page{Number: 2, Size: 1})
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "Silver", chains[0].Name)
	assert.Equal(t, int64(2), total)
}

func TestRegistry_Unavailable(t *testing.T) {
	s := fixture().WithError(errors.New("connection refused"))

	_, _, err := NewRegistry(s).ListChains(context.Background(), Page{Number: 1, Size: 10})
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Equal(t, "chain registry unavailable", PublicMessage(err))

	_, err = NewRegistry(s).ListChainNames(context.Background())
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
}

func TestValidateChainName(t *testing.T) {
	assert.NoError(t, ValidateChainName("Gold"))

	for _, name := range []string{"", "$cmd", ".hidden", "a\x00b", string(make([]byte, 121))} {
		err := ValidateChainName(name)
		assert.ErrorIs(t, err, ErrConfiguration, "name %q", name)
	}
}

func TestBuilder_NoChains(t *testing.T) {
	_, err := NewBuilder(prefix).Build(nil)
	assert.ErrorIs(t, err, ErrNoChainsFound)
	assert.Equal(t, KindNoChainsFound, KindOf(err))
}

func TestBuilder_CanonicalOrder(t *testing.T) {
	b := NewBuilder(prefix)

	p1, err := b.Build([]string{"A", "B", "C"})
	require.NoError(t, err)
	p2, err := b.Build([]string{"C", "B", "A", "B"})
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, "treeNodesA", p1.Base().Collection)
	assert.Len(t, p1.Unions(), 2)
}

func TestBuilder_RejectsMalformedName(t *testing.T) {
	_, err := NewBuilder(prefix).Build([]string{"Gold", "$where"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuilder_CustomResolver(t *testing.T) {
	r := ResolverFunc(func(chain string) string { return "nodes_" + chain })

	p, err := NewBuilder(r).Build([]string{"Gold"}, WithUserJoin())
	require.NoError(t, err)
	assert.Equal(t, "nodes_Gold", p.Base().Collection)
	require.NotNil(t, p.Join)
	assert.Equal(t, store.UsersCollection, p.Join.From)
}

func TestAggregator_GoldScenario(t *testing.T) {
	s := memstore.New().
		AddChains(models.Chain{ID: "c1", Name: "Gold", SeedAmount: 100, RootNode: "R"}).
		AddNodes("treeNodesGold", models.Node{ID: "R", TotalMembers: 5})

	chains, total, err := NewRegistry(s).ListChains(context.Background(), Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	sum, err := NewAggregator(s, prefix, 4).Compute(context.Background(), chains)
	require.NoError(t, err)
	assert.Equal(t, 500.0, chains[0].Investment)
	assert.Equal(t, 500.0, sum)
}

func TestAggregator_SumsPage(t *testing.T) {
	s := fixture()
	chains, _, err := NewRegistry(s).ListChains(context.Background(), Page{Number: 1, Size: 10})
	require.NoError(t, err)

	sum, err := NewAggregator(s, prefix, 1).Compute(context.Background(), chains)
	require.NoError(t, err)

	assert.Equal(t, 500.0, chains[0].Investment)
	assert.Equal(t, 150.0, chains[1].Investment)
	assert.Equal(t, 650.0, sum)
}

func TestAggregator_RootNodeMissing(t *testing.T) {
	s := fixture()
	chains := []models.Chain{{Name: "Gold", SeedAmount: 100, RootNode: "gone"}}

	_, err := NewAggregator(s, prefix, 2).Compute(context.Background(), chains)
	assert.ErrorIs(t, err, ErrRootNodeMissing)
	assert.Equal(t, "chain root node is missing", PublicMessage(err))
	assert.NotContains(t, PublicMessage(err), "treeNodes")
}

func TestAggregator_StoreFailure(t *testing.T) {
	s := fixture().WithError(errors.New("socket closed"))
	chains := []models.Chain{{Name: "Gold", SeedAmount: 100, RootNode: "g-root"}}

	_, err := NewAggregator(s, prefix, 2).Compute(context.Background(), chains)
	assert.ErrorIs(t, err, ErrStore)
}

func TestAggregator_EmptyPage(t *testing.T) {
	sum, err := NewAggregator(fixture(), prefix, 4).Compute(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestAggregator_ManyChainsBounded(t *testing.T) {
	s := memstore.New()
	chains := make([]models.Chain, 0, 25)
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("C%02d", i)
		s.AddNodes("treeNodes"+name, models.Node{ID: "root", TotalMembers: int64(i)})
		chains = append(chains, models.Chain{Name: name, SeedAmount: 2, RootNode: "root"})
	}

	sum, err := NewAggregator(s, prefix, 3).Compute(context.Background(), chains)
	require.NoError(t, err)
	// 2 * (0 + 1 + ... + 24)
	assert.Equal(t, 600.0, sum)
	assert.Equal(t, 25, s.Calls())
}

func TestTopN_AcrossChains(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Silver", "Gold"})
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplyTopN(p))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "g-root", rows[0].ID)
	assert.Equal(t, "Gold", rows[0].Chain)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].TotalMembers, rows[i].TotalMembers)
	}
}

func TestTopN_CapsAtTen(t *testing.T) {
	s := memstore.New()
	var names []string
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("C%d", i)
		names = append(names, name)
		for j := 0; j < 6; j++ {
			s.AddNodes("treeNodes"+name, models.Node{ID: fmt.Sprintf("%s-%d", name, j), TotalMembers: int64(i*10 + j)})
		}
	}

	p, err := NewBuilder(prefix).Build(names)
	require.NoError(t, err)
	rows, err := s.Execute(context.Background(), ApplyTopN(p))
	require.NoError(t, err)

	require.Len(t, rows, TopN)
	assert.Equal(t, int64(25), rows[0].TotalMembers)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].TotalMembers, rows[i].TotalMembers)
	}
}

func TestTopN_SetEqualityAcrossInputOrder(t *testing.T) {
	s := fixture()
	b := NewBuilder(prefix)

	p1, err := b.Build([]string{"Gold", "Silver"})
	require.NoError(t, err)
	p2, err := b.Build([]string{"Silver", "Gold"})
	require.NoError(t, err)

	r1, err := s.Execute(context.Background(), ApplyTopN(p1))
	require.NoError(t, err)
	r2, err := s.Execute(context.Background(), ApplyTopN(p2))
	require.NoError(t, err)

	assert.ElementsMatch(t, r1, r2)
}

func TestSearch_NumericTermMatchesNodeID(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold", "Silver"}, WithUserJoin())
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplySearch(p, "42", Page{Number: 1, Size: 10}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].NodeID)
	assert.Equal(t, "Silver", rows[0].Chain)
	assert.Equal(t, "dave", rows[0].UserData.UserName)
}

func TestSearch_LeadingDigitsMatchNodeID(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold", "Silver"}, WithUserJoin())
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplySearch(p, "42abc", Page{Number: 1, Size: 10}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].NodeID)
	assert.Equal(t, "Silver", rows[0].Chain)
}

func TestSearch_NameIgnoresCase(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold", "Silver"}, WithUserJoin())
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplySearch(p, "CAR", Page{Number: 1, Size: 10}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "carol", rows[0].UserData.UserName)
}

// With one chain there is no union, and the filter must still apply
func TestSearch_SingleChainStillFilters(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold"}, WithUserJoin())
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplySearch(p, "bob", Page{Number: 1, Size: 10}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "g-2", rows[0].ID)
}

func TestSearch_MetacharactersAreLiteral(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold", "Silver"}, WithUserJoin())
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), ApplySearch(p, ".*", Page{Number: 1, Size: 10}))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSearch_Pagination(t *testing.T) {
	s := fixture()
	p, err := NewBuilder(prefix).Build([]string{"Gold", "Silver"}, WithUserJoin())
	require.NoError(t, err)

	// "a" matches alice, carol and dave
	rows, err := s.Execute(context.Background(), ApplySearch(p, "a", Page{Number: 2, Size: 2}))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseNodeID(t *testing.T) {
	tests := []struct {
		term string
		id   int64
		ok   bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"-3", -3, true},
		{"+5", 5, true},
		{"4.2", 4, true},
		{"12abc", 12, true},
		{"0x2A", 42, true},
		{"0x", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"a12", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		id, ok := parseNodeID(tt.term)
		assert.Equal(t, tt.ok, ok, tt.term)
		assert.Equal(t, tt.id, id, tt.term)
	}
}

func TestErrors(t *testing.T) {
	wrapped := fmt.Errorf("request: %w", NewError(KindNotFound, "Nodes not found", errors.New("cursor empty")))

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrStore)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "Nodes not found", PublicMessage(wrapped))
	assert.Contains(t, wrapped.Error(), "cursor empty")

	plain := errors.New("driver exploded")
	assert.Equal(t, KindStore, KindOf(plain))
	assert.Equal(t, "store operation failed", PublicMessage(plain))
}
