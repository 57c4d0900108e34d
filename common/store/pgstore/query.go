package pgstore

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
)

// Column expressions of the unioned row (r) and the joined user (u)
var fieldColumns = map[string]string{
	plan.FieldID:           "r.id",
	plan.FieldNodeID:       "r.node_id",
	plan.FieldTotalMembers: "r.total_members",
	plan.FieldUser:         "r.user_id",
	plan.FieldChain:        "r.chain",
	plan.FieldUserName:     "u.user_name",
}

var userColumns = map[string]string{
	plan.FieldID: "id",
}

// Compile turns p into one SQL statement and its positional arguments.
// Table names come from chain names, so they only ever reach the statement
// through pgx.Identifier.
func Compile(p *plan.Plan) (string, []any, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}

	q := &query{}

	q.sql.WriteString("SELECT r.id, r.node_id, r.total_members, r.user_id, r.parent, r.children, r.chain")
	if p.Join != nil {
		q.sql.WriteString(", u.id, u.user_name")
	}

	q.sql.WriteString(" FROM (")
	for i, src := range p.Sources {
		if i > 0 {
			q.sql.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(&q.sql,
			"SELECT id, node_id, total_members, COALESCE(user_id, '') AS user_id, COALESCE(parent, '') AS parent, children, %s::text AS chain FROM %s",
			q.arg(src.Chain), pgx.Identifier{src.Collection}.Sanitize())
	}
	q.sql.WriteString(") AS r")

	if j := p.Join; j != nil {
		local, ok := fieldColumns[j.LocalField]
		foreign, fok := userColumns[j.ForeignField]
		if !ok || !fok || j.From != store.UsersCollection {
			return "", nil, fmt.Errorf("unsupported join %s.%s=%s", j.From, j.ForeignField, j.LocalField)
		}
		fmt.Fprintf(&q.sql, " JOIN %s AS u ON u.%s = %s", pgx.Identifier{j.From}.Sanitize(), foreign, local)
	}

	if p.Match != nil && len(p.Match.Any) > 0 {
		conds := make([]string, 0, len(p.Match.Any))
		for _, pred := range p.Match.Any {
			col, err := column(pred.Field, p.Join != nil)
			if err != nil {
				return "", nil, err
			}
			switch pred.Op {
			case plan.OpRegex:
				op := "~"
				if pred.CaseInsensitive {
					op = "~*"
				}
				conds = append(conds, fmt.Sprintf("%s %s %s", col, op, q.arg(pred.Value)))
			case plan.OpEq:
				conds = append(conds, fmt.Sprintf("%s = %s", col, q.arg(pred.Value)))
			}
		}
		fmt.Fprintf(&q.sql, " WHERE (%s)", strings.Join(conds, " OR "))
	}

	if len(p.Sort) > 0 {
		keys := make([]string, 0, len(p.Sort))
		for _, key := range p.Sort {
			col, err := column(key.Field, p.Join != nil)
			if err != nil {
				return "", nil, err
			}
			if key.Desc {
				col += " DESC"
			}
			keys = append(keys, col)
		}
		fmt.Fprintf(&q.sql, " ORDER BY %s", strings.Join(keys, ", "))
	}

	if p.Skip > 0 {
		fmt.Fprintf(&q.sql, " OFFSET %s", q.arg(p.Skip))
	}
	if p.Limit > 0 {
		fmt.Fprintf(&q.sql, " LIMIT %s", q.arg(p.Limit))
	}

	return q.sql.String(), q.args, nil
}

type query struct {
	sql  strings.Builder
	args []any
}

// arg binds v and returns its placeholder
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func column(field string, joined bool) (string, error) {
	col, ok := fieldColumns[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	if strings.HasPrefix(col, "u.") && !joined {
		return "", fmt.Errorf("field %q needs the user join", field)
	}
	return col, nil
}
