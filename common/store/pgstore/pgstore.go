// Package pgstore is the Postgres store backend. Each chain's nodes live in
// their own table ("treeNodes<name>") next to the chains, users and media
// tables, and federated plans run as one UNION ALL statement.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/chainquery/common/db"
	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
)

// undefined_table
const codeUndefinedTable = "42P01"

// Store reads the chain layout from Postgres
type Store struct {
	db *db.DB
}

var _ store.Store = (*Store)(nil)

// New creates a store over the pool
func New(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) ListChains(ctx context.Context, skip, limit int64) ([]models.Chain, error) {
	query := `
		SELECT id, name, seed_amount, root_node
		FROM chains
		ORDER BY id
		OFFSET $1
		LIMIT NULLIF($2::bigint, 0)
	`

	rows, err := s.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()

	chains := []models.Chain{}
	for rows.Next() {
		var c models.Chain
		if err := rows.Scan(&c.ID, &c.Name, &c.SeedAmount, &c.RootNode); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		chains = append(chains, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}

	return chains, nil
}

func (s *Store) CountChains(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM chains`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chains: %w", err)
	}
	return n, nil
}

func (s *Store) ChainNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT name FROM chains`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chain names: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list chain names: %w", err)
	}
	return names, nil
}

func (s *Store) FindNode(ctx context.Context, collection, id string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, node_id, total_members, COALESCE(user_id, ''), COALESCE(parent, ''), children
		FROM %s
		WHERE id = $1
	`, pgx.Identifier{collection}.Sanitize())

	node := &models.Node{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&node.ID,
		&node.NodeID,
		&node.TotalMembers,
		&node.User,
		&node.Parent,
		&node.Children,
	)
	if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node from %s: %w", collection, err)
	}

	return node, nil
}

func (s *Store) FindMedia(ctx context.Context) (models.Media, error) {
	var doc map[string]any
	err := s.db.QueryRow(ctx, `SELECT doc FROM media LIMIT 1`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return models.Media(doc), nil
}

// Execute runs p as a single statement
func (s *Store) Execute(ctx context.Context, p *plan.Plan) ([]models.Row, error) {
	query, args, err := Compile(p)
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute plan on %s: %w", p.Base().Collection, err)
	}
	defer rows.Close()

	out := []models.Row{}
	for rows.Next() {
		var r models.Row
		dest := []any{&r.ID, &r.NodeID, &r.TotalMembers, &r.User, &r.Parent, &r.Children, &r.Chain}
		if p.Join != nil {
			r.UserData = &models.User{}
			dest = append(dest, &r.UserData.ID, &r.UserData.UserName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to execute plan: %w", err)
	}

	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *Store) Close(context.Context) error {
	s.db.Close()
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}
