package memstore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/lyzr/chainquery/common/plan"
)

// evaluator compiles plan matches into CEL programs. Programs depend only
// on the shape of the match (fields and operators), so one compiled
// program serves every search term.
type evaluator struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

func newEvaluator() *evaluator {
	return &evaluator{cache: make(map[string]cel.Program)}
}

// matches reports whether row satisfies any predicate of m
func (e *evaluator) matches(m *plan.Match, get func(field string) (any, bool)) (bool, error) {
	if m == nil || len(m.Any) == 0 {
		return true, nil
	}

	prg, err := e.program(m)
	if err != nil {
		return false, err
	}

	vars := make(map[string]any, len(m.Any)*3)
	for i, pred := range m.Any {
		val, ok := get(pred.Field)
		vars[fmt.Sprintf("h%d", i)] = ok
		vars[fmt.Sprintf("f%d", i)] = val
		vars[fmt.Sprintf("v%d", i)] = predicateValue(pred)
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *evaluator) program(m *plan.Match) (cel.Program, error) {
	expr := expression(m)

	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()
	if exists {
		return prg, nil
	}

	prg, err := compile(expr, len(m.Any))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

// expression renders a match as a CEL disjunction. h<i> guards every
// term so a missing field evaluates to false instead of an error.
func expression(m *plan.Match) string {
	terms := make([]string, 0, len(m.Any))
	for i, pred := range m.Any {
		switch pred.Op {
		case plan.OpRegex:
			terms = append(terms, fmt.Sprintf("(h%d && f%d.matches(v%d))", i, i, i))
		default:
			terms = append(terms, fmt.Sprintf("(h%d && f%d == v%d)", i, i, i))
		}
	}
	return strings.Join(terms, " || ")
}

func compile(expr string, n int) (cel.Program, error) {
	opts := make([]cel.EnvOption, 0, n*3)
	for i := 0; i < n; i++ {
		opts = append(opts,
			cel.Variable(fmt.Sprintf("h%d", i), cel.BoolType),
			cel.Variable(fmt.Sprintf("f%d", i), cel.DynType),
			cel.Variable(fmt.Sprintf("v%d", i), cel.DynType),
		)
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

func predicateValue(pred plan.Predicate) any {
	if pred.Op == plan.OpRegex && pred.CaseInsensitive {
		return "(?i)" + pred.Value.(string)
	}
	return pred.Value
}
