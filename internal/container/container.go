package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-city-crud/app/db"
	"github.com/FACorreiaa/go-city-crud/app/observability/metrics"
	"github.com/FACorreiaa/go-city-crud/config"
	"github.com/FACorreiaa/go-city-crud/internal/api/city"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Metrics     *metrics.AppMetrics
	CityStore   city.Store
	CityService city.Service
	CityHandler *city.Handler
}

// NewContainer builds the store selected by cfg.Store.Backend and wires the
// service and handler on top of it. The global meter provider should be
// installed before calling this.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	metrics.InitAppMetrics()

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Get(),
	}

	var store city.Store
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pool, err := c.initPostgres(ctx)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		store = city.NewCityRepository(pool, logger)
		if cfg.Store.Cache.Enabled {
			store = city.NewCachedStore(store, cfg.Store.Cache.TTL, cfg.Store.Cache.CleanupInterval, logger)
		}
	default:
		store = city.NewMemoryStore(logger)
	}

	if cfg.Store.Seed {
		existing, err := store.All(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to inspect store before seeding: %w", err)
		}
		if len(existing) == 0 {
			if err := city.Seed(ctx, store, city.SeedCities); err != nil {
				c.Close()
				return nil, err
			}
			logger.Info("Seeded city store", slog.Int("count", len(city.SeedCities)))
		}
	}

	c.CityStore = store
	c.CityService = city.NewCityService(store, logger)
	c.CityHandler = city.NewCityHandler(c.CityService, logger)

	logger.Info("Container initialized", slog.String("store_backend", cfg.Store.Backend))
	return c, nil
}

func (c *Container) initPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Config.Repositories.Postgres.MaxConns, c.Logger)
	if err != nil {
		return nil, err
	}

	if !database.WaitForDB(ctx, pool, c.Logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready after waiting")
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
