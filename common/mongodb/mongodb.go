package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Client wraps the MongoDB driver client for the mongo store backend.
// One client (and its connection pool) is shared by all requests.
type Client struct {
	*mongo.Client
	db  *mongo.Database
	log *logger.Logger
}

// New connects to MongoDB and verifies the connection
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(cfg.Mongo.ConnectTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if cfg.Mongo.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.Mongo.MaxPoolSize))
	}
	if cfg.Mongo.MinPoolSize > 0 {
		opts.SetMinPoolSize(uint64(cfg.Mongo.MinPoolSize))
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("mongodb connected", "db", cfg.Mongo.Database)

	return &Client{
		Client: client,
		db:     client.Database(cfg.Mongo.Database),
		log:    log,
	}, nil
}

// Database returns the configured database handle
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Close disconnects and releases the pool
func (c *Client) Close(ctx context.Context) error {
	c.log.Info("closing mongodb connection")
	return c.Client.Disconnect(ctx)
}

// Health checks the primary connection
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return c.Client.Ping(ctx, nil)
}
