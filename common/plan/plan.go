// Package plan describes a federated read as data. A Plan is built once per
// request and handed to a store backend, which compiles it into a single
// server-side execution (an aggregation pipeline, a SQL statement, or an
// in-memory evaluation).
package plan

import (
	"fmt"
	"strings"
)

// Logical field paths understood by every backend
const (
	FieldID           = "_id"
	FieldNodeID       = "nodeId"
	FieldTotalMembers = "totalMembers"
	FieldUser         = "user"
	FieldChain        = "chain"
	FieldUserName     = "userData.userName"
)

// Source is one physical node collection and the chain it belongs to
type Source struct {
	Chain      string
	Collection string
}

// Join attaches documents of another collection to every row.
// Rows without a match are dropped (inner join), never null-padded.
type Join struct {
	From         string // collection to look up, e.g. "users"
	LocalField   string // field on the row, e.g. "user"
	ForeignField string // field on the joined document, e.g. "_id"
	As           string // namespace of the joined fields, e.g. "userData"
}

// Op is a predicate operator
type Op string

const (
	// OpEq matches when the field equals Value
	OpEq Op = "eq"
	// OpRegex matches when the string field matches the RE2 pattern in Value
	OpRegex Op = "regex"
)

// Predicate is one field test
type Predicate struct {
	Field string
	Op    Op
	Value any

	// Only meaningful for OpRegex
	CaseInsensitive bool
}

// Match keeps a row when any of its predicates holds
type Match struct {
	Any []Predicate
}

// SortKey orders the stream on one field
type SortKey struct {
	Field string
	Desc  bool
}

// Plan is UNION ALL of Sources, then Join, Match, Sort, Skip and Limit in
// that order. Sources[0] is the collection the plan executes against; the
// rest are appended as union steps.
type Plan struct {
	Sources []Source
	Join    *Join
	Match   *Match
	Sort    []SortKey
	Skip    int64
	Limit   int64 // 0 means no limit
}

// Base returns the source the plan executes against
func (p *Plan) Base() Source {
	return p.Sources[0]
}

// Unions returns the sources appended to the base
func (p *Plan) Unions() []Source {
	return p.Sources[1:]
}

// Validate checks the plan is executable
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("nil plan")
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("plan has no sources")
	}
	for i, src := range p.Sources {
		if src.Collection == "" {
			return fmt.Errorf("source %d: empty collection name", i)
		}
	}
	if p.Skip < 0 {
		return fmt.Errorf("negative skip: %d", p.Skip)
	}
	if p.Limit < 0 {
		return fmt.Errorf("negative limit: %d", p.Limit)
	}
	if p.Match != nil {
		for i, pred := range p.Match.Any {
			switch pred.Op {
			case OpEq:
			case OpRegex:
				if _, ok := pred.Value.(string); !ok {
					return fmt.Errorf("predicate %d: regex value must be a string", i)
				}
			default:
				return fmt.Errorf("predicate %d: unsupported operator %q", i, pred.Op)
			}
		}
	}
	return nil
}

// String renders the plan for debug logs
func (p *Plan) String() string {
	var b strings.Builder
	names := make([]string, 0, len(p.Sources))
	for _, src := range p.Sources {
		names = append(names, src.Collection)
	}
	fmt.Fprintf(&b, "union(%s)", strings.Join(names, ","))
	if p.Join != nil {
		fmt.Fprintf(&b, " join(%s.%s=%s as %s)", p.Join.From, p.Join.ForeignField, p.Join.LocalField, p.Join.As)
	}
	if p.Match != nil {
		parts := make([]string, 0, len(p.Match.Any))
		for _, pred := range p.Match.Any {
			parts = append(parts, fmt.Sprintf("%s %s %v", pred.Field, pred.Op, pred.Value))
		}
		fmt.Fprintf(&b, " match(%s)", strings.Join(parts, " or "))
	}
	for _, key := range p.Sort {
		dir := "asc"
		if key.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, " sort(%s %s)", key.Field, dir)
	}
	if p.Skip > 0 {
		fmt.Fprintf(&b, " skip(%d)", p.Skip)
	}
	if p.Limit > 0 {
		fmt.Fprintf(&b, " limit(%d)", p.Limit)
	}
	return b.String()
}
