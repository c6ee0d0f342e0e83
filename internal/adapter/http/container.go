package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"todoapi/internal/adapter/cache"
	"todoapi/internal/adapter/database/postgres"
	pgrepository "todoapi/internal/adapter/database/postgres/repository"
	"todoapi/internal/adapter/database/sqlite"
	"todoapi/internal/adapter/database/sqlite/repository"
	"todoapi/internal/adapter/http/handler"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/config"
	"todoapi/internal/core/mapper"
	"todoapi/internal/core/port"
	"todoapi/internal/core/service"
)

type Container struct {
	TodoRepo    port.TodoRepository
	TodoService port.TodoService
	TodoHandler *handler.TodoHandler

	sqlDB   *sqlite.DB
	closers []func() error
}

// NewContainer wires the datastore selected in cfg, the optional cache in
// front of it, the service and the handler.
func NewContainer(ctx context.Context, cfg *config.Config, lokiLogger *logger.LokiLogger, probe port.Telemetry) (*Container, error) {
	c := &Container{}

	todoRepo, err := c.newRepository(ctx, cfg, probe)

	if err != nil {
		c.Close()
		return nil, err
	}

	todoRepo, err = c.withCache(ctx, cfg, todoRepo, lokiLogger, probe)

	if err != nil {
		c.Close()
		return nil, err
	}

	todoSvc := service.NewTodoService(todoRepo, mapper.NewTodoMapper(), probe, lokiLogger.Logger)

	c.TodoRepo = todoRepo
	c.TodoService = todoSvc
	c.TodoHandler = handler.NewTodoHandler(todoSvc, lokiLogger)

	return c, nil
}

func (c *Container) newRepository(ctx context.Context, cfg *config.Config, probe port.Telemetry) (port.TodoRepository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			MaxConns: int32(cfg.Database.MaxOpenConns),
		})

		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		c.closers = append(c.closers, func() error {
			db.Close()
			return nil
		})

		return pgrepository.NewTodoRepository(db, probe), nil
	default:
		db, err := sqlite.Open(sqlite.Config{
			Path:         cfg.Database.Path,
			Name:         cfg.App.Name,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		}, sqlite.NewLogger(cfg.LogLevel))

		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		c.sqlDB = db
		c.closers = append(c.closers, db.Close)

		return repository.NewTodoRepository(db, probe), nil
	}
}

func (c *Container) withCache(ctx context.Context, cfg *config.Config, next port.TodoRepository, lokiLogger *logger.LokiLogger, probe port.Telemetry) (port.TodoRepository, error) {
	var store port.CacheRepository

	switch cfg.Cache.Driver {
	case config.CacheMemory:
		store = cache.NewMemoryCache(cfg.Cache.TTL)
	case config.CacheRedis:
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			URL:      cfg.Cache.RedisURL,
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}

		store = cache.NewRedisCache(rdb)
	default:
		return next, nil
	}

	c.closers = append(c.closers, store.Close)

	lokiLogger.Logger.Info("Todo cache enabled",
		zap.String("driver", cfg.Cache.Driver),
		zap.Duration("ttl", cfg.Cache.TTL),
	)

	return cache.NewCachedTodoRepository(next, store, cfg.Cache.TTL, probe, lokiLogger.Logger), nil
}

// RegisterDBStats exposes connection pool stats for the sqlite pool. It is a
// no-op for other drivers.
func (c *Container) RegisterDBStats(reg prometheus.Registerer, dbName string) error {
	if c.sqlDB == nil {
		return nil
	}

	return reg.Register(collectors.NewDBStatsCollector(c.sqlDB.DB, dbName))
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}

	c.closers = nil

	return errors.Join(errs...)
}
