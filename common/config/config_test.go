package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("chainquery")
	require.NoError(t, err)

	assert.Equal(t, "chainquery", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, BackendMongo, cfg.Store.Backend)
	assert.Equal(t, "10D", cfg.Mongo.Database)
	assert.Equal(t, "treeNodes", cfg.Query.CollectionPrefix)
	assert.Equal(t, 10, cfg.Query.DefaultPageSize)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("QUERY_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load("chainquery")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Service.Port)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.Query.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Service.AllowedOrigins)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr())
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("QUERY_DEFAULT_PAGE_SIZE", "ten")

	cfg, err := Load("chainquery")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Query.DefaultPageSize)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("chainquery")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Service.Port = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "cassandra" }},
		{"empty mongo uri", func(c *Config) { c.Mongo.URI = "" }},
		{"empty prefix", func(c *Config) { c.Query.CollectionPrefix = "" }},
		{"max below default", func(c *Config) { c.Query.MaxPageSize = 5 }},
		{"zero concurrency", func(c *Config) { c.Query.RootReadConcurrency = 0 }},
		{"postgres pool", func(c *Config) {
			c.Store.Backend = BackendPostgres
			c.Database.MaxConns = 1
			c.Database.MinConns = 2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5433, Database: "chains", User: "u", Password: "p", SSLMode: "require",
	}}
	assert.Equal(t, "postgres://u:p@db:5433/chains?sslmode=require", cfg.DatabaseURL())
}
