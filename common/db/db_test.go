package db

import (
	"testing"
	"time"

	"github.com/lyzr/chainquery/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "chainquery"},
		Database: config.DatabaseConfig{
			Host:        "db",
			Port:        5432,
			Database:    "chains",
			User:        "u",
			Password:    "p",
			Schema:      "tenant_a",
			SSLMode:     "disable",
			MaxConns:    8,
			MinConns:    1,
			MaxIdleTime: time.Minute,
			MaxLifetime: time.Hour,
		},
		Query: config.QueryConfig{Timeout: 2500 * time.Millisecond},
	}
}

func TestPoolConfig(t *testing.T) {
	pc, err := PoolConfig(storeConfig())
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, "chains", pc.ConnConfig.Database)

	params := pc.ConnConfig.RuntimeParams
	assert.Equal(t, `"tenant_a"`, params["search_path"])
	assert.Equal(t, "2500", params["statement_timeout"])
	assert.Equal(t, "on", params["default_transaction_read_only"])
	assert.Equal(t, "chainquery", params["application_name"])
}

func TestPoolConfig_QuotesSchema(t *testing.T) {
	cfg := storeConfig()
	cfg.Database.Schema = `odd"schema`

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, `"odd""schema"`, pc.ConnConfig.RuntimeParams["search_path"])
}

func TestPoolConfig_NoTimeoutOrSchema(t *testing.T) {
	cfg := storeConfig()
	cfg.Database.Schema = ""
	cfg.Query.Timeout = 0

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.NotContains(t, pc.ConnConfig.RuntimeParams, "search_path")
	assert.NotContains(t, pc.ConnConfig.RuntimeParams, "statement_timeout")
}

func TestPoolConfig_BadURL(t *testing.T) {
	cfg := storeConfig()
	cfg.Database.Port = -1
	cfg.Database.Host = "%zz"

	_, err := PoolConfig(cfg)
	assert.ErrorContains(t, err, "parse database URL")
}
