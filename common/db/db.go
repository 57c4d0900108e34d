// Package db opens the Postgres pool behind the postgres store backend.
// Sessions are read-only, pinned to the configured schema and bounded by
// the per-query timeout.
package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/logger"
)

// RegistryTable must exist before the store can serve anything
const RegistryTable = "chains"

// DB is the connection pool of the postgres store
type DB struct {
	*pgxpool.Pool
	schema string
	log    *logger.Logger
}

// New opens the pool, checks the server answers and that the chain
// registry table is visible in the configured schema
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	d := &DB{Pool: pool, schema: cfg.Database.Schema, log: log}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.checkRegistry(checkCtx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres store ready",
		"host", cfg.Database.Host,
		"db", cfg.Database.Database,
		"schema", d.schema,
		"statement_timeout", cfg.Query.Timeout,
	)

	return d, nil
}

// PoolConfig builds the pool settings. Every session gets the schema on its
// search_path, runs read-only transactions and carries the query timeout
// as statement_timeout so the server cancels work the caller gave up on.
func PoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime

	params := poolConfig.ConnConfig.RuntimeParams
	params["application_name"] = cfg.Service.Name
	params["default_transaction_read_only"] = "on"
	if cfg.Database.Schema != "" {
		params["search_path"] = pgx.Identifier{cfg.Database.Schema}.Sanitize()
	}
	if cfg.Query.Timeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.Query.Timeout.Milliseconds(), 10)
	}

	return poolConfig, nil
}

func (d *DB) checkRegistry(ctx context.Context) error {
	var found bool
	err := d.QueryRow(ctx, `SELECT to_regclass($1::text) IS NOT NULL`, RegistryTable).Scan(&found)
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if !found {
		return fmt.Errorf("table %q not found in schema %q", RegistryTable, d.schema)
	}
	return nil
}

// Schema returns the schema the store reads from
func (d *DB) Schema() string {
	return d.schema
}

// Close closes the connection pool
func (d *DB) Close() {
	d.log.Info("closing postgres store pool", "schema", d.schema)
	d.Pool.Close()
}

// Health pings the pool and reports pool pressure when it fails
func (d *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := d.Ping(ctx); err != nil {
		stat := d.Stat()
		return fmt.Errorf("postgres store (schema %s, %d/%d conns in use): %w",
			d.schema, stat.AcquiredConns(), stat.MaxConns(), err)
	}
	return nil
}
