package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

// Client owns the driver connection and the database the remote store lives in.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the primary is reachable and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*Client, error) {
	log.Info().Str("db", dbName).Msg("Initializing MongoDB client")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)
	clientOptions.SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb primary: %w", err)
	}

	log.Info().Msg("MongoDB client initialized successfully.")

	return &Client{client: client, db: client.Database(dbName)}, nil
}

// DB returns the selected database.
func (c *Client) DB() *mongo.Database {
	return c.db
}

// Ping checks the primary with a short timeout. Used for health checks.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(pingCtx, readpref.Primary())
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) {
	log.Info().Msg("Closing MongoDB connection.")
	if err := c.client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing MongoDB connection")
	}
}
