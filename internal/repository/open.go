package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/graph"
)

// Store drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverNeo4j    = "neo4j"
	DriverPostgres = "postgres"
)

// Opened is a ready store plus the resources behind it.
type Opened struct {
	Store  Store
	Driver string
	// Graph is set for the neo4j driver so callers can probe it directly.
	Graph graph.Client
	close func(context.Context) error
}

// Close releases the underlying connection, if any.
func (o Opened) Close(ctx context.Context) error {
	if o.close == nil {
		return nil
	}
	return o.close(ctx)
}

// Open builds the store named by cfg.Store.Driver and prepares its schema.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Opened, error) {
	switch cfg.Store.Driver {
	case "", DriverMemory:
		logger.Info("using in-memory transaction store")
		return Opened{Store: NewMemoryStore(), Driver: DriverMemory}, nil

	case DriverNeo4j:
		if cfg.Graph.URI == "" {
			return Opened{}, graph.ErrMissingURI
		}
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return Opened{}, err
		}
		if err := client.VerifyConnectivity(ctx); err != nil {
			_ = client.Close(ctx)
			return Opened{}, err
		}
		store := NewGraphStore(client)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return Opened{}, err
		}
		logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
		return Opened{Store: store, Driver: DriverNeo4j, Graph: client, close: client.Close}, nil

	case DriverPostgres:
		store, err := OpenPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return Opened{}, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return Opened{}, err
		}
		logger.Info("connected to postgres")
		return Opened{Store: store, Driver: DriverPostgres, close: func(context.Context) error { return store.Close() }}, nil

	default:
		return Opened{}, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
