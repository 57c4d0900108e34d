// Package memstore is an in-memory store backend. It executes plans with
// the same semantics as the database backends and records every call, so
// the federation engine can be tested without a running database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
)

// Store is the in-memory implementation of store.Store
type Store struct {
	mu     sync.Mutex
	chains []models.Chain
	nodes  map[string][]models.Node
	users  map[string]models.User
	media  models.Media
	err    error
	calls  int
	plans  []*plan.Plan
	eval   *evaluator
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		nodes: make(map[string][]models.Node),
		users: make(map[string]models.User),
		eval:  newEvaluator(),
	}
}

// AddChains registers chains in the directory, in insertion order
func (s *Store) AddChains(chains ...models.Chain) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = append(s.chains, chains...)
	return s
}

// AddNodes appends nodes to a node collection
func (s *Store) AddNodes(collection string, nodes ...models.Node) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[collection] = append(s.nodes[collection], nodes...)
	return s
}

// AddUsers adds users to the user directory
func (s *Store) AddUsers(users ...models.User) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// SetMedia sets the singleton media document
func (s *Store) SetMedia(m models.Media) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = m
	return s
}

// WithError makes every subsequent call fail with err
func (s *Store) WithError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Calls returns how many data calls were made
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Plans returns a snapshot of the executed plans
func (s *Store) Plans() []*plan.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*plan.Plan(nil), s.plans...)
}

// begin counts a call and returns the configured failure, if any
func (s *Store) begin(ctx context.Context) error {
	s.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *Store) ListChains(ctx context.Context, skip, limit int64) ([]models.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	return window(s.chains, skip, limit), nil
}

func (s *Store) CountChains(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	return int64(len(s.chains)), nil
}

func (s *Store) ChainNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(s.chains))
	names := make([]string, 0, len(s.chains))
	for _, c := range s.chains {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Store) FindNode(ctx context.Context, collection, id string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	for _, n := range s.nodes[collection] {
		if n.ID == id {
			node := n
			return &node, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindMedia(ctx context.Context) (models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	if s.media == nil {
		return nil, store.ErrNotFound
	}
	out := make(models.Media, len(s.media))
	for k, v := range s.media {
		out[k] = v
	}
	return out, nil
}

// Execute evaluates p stage by stage: union, join, match, sort, skip, limit
func (s *Store) Execute(ctx context.Context, p *plan.Plan) ([]models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	s.plans = append(s.plans, p)

	var rows []models.Row
	for _, src := range p.Sources {
		for _, n := range s.nodes[src.Collection] {
			rows = append(rows, models.Row{Node: n, Chain: src.Chain})
		}
	}

	if p.Join != nil {
		joined, err := s.join(rows, p.Join)
		if err != nil {
			return nil, err
		}
		rows = joined
	}

	if p.Match != nil {
		filtered := rows[:0]
		for _, row := range rows {
			row := row
			ok, err := s.eval.matches(p.Match, func(field string) (any, bool) {
				return fieldValue(&row, field)
			})
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if len(p.Sort) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, key := range p.Sort {
				a, _ := fieldValue(&rows[i], key.Field)
				b, _ := fieldValue(&rows[j], key.Field)
				c := compare(a, b)
				if c == 0 {
					continue
				}
				if key.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	return window(rows, p.Skip, p.Limit), nil
}

func (s *Store) join(rows []models.Row, j *plan.Join) ([]models.Row, error) {
	if j.From != store.UsersCollection || j.LocalField != plan.FieldUser || j.ForeignField != plan.FieldID {
		return nil, fmt.Errorf("unsupported join %s.%s=%s", j.From, j.ForeignField, j.LocalField)
	}

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		u, ok := s.users[row.User]
		if !ok {
			continue
		}
		user := u
		row.UserData = &user
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) Close(context.Context) error {
	return nil
}

func fieldValue(row *models.Row, field string) (any, bool) {
	switch field {
	case plan.FieldID:
		return row.ID, true
	case plan.FieldNodeID:
		return row.NodeID, true
	case plan.FieldTotalMembers:
		return row.TotalMembers, true
	case plan.FieldUser:
		return row.User, row.User != ""
	case plan.FieldChain:
		return row.Chain, true
	case plan.FieldUserName:
		if row.UserData == nil {
			return nil, false
		}
		return row.UserData.UserName, true
	}
	return nil, false
}

func compare(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

func window[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	if skip < 0 {
		skip = 0
	}
	end := int64(len(items))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return append([]T(nil), items[skip:end]...)
}
