// Package container wires configuration, storage, locking, use cases and handlers into one value
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/counter-clean-arch/app/handlers"
	businessflow "github.com/amirphl/counter-clean-arch/business_flow"
	"github.com/amirphl/counter-clean-arch/config"
	"github.com/amirphl/counter-clean-arch/migrations"
	"github.com/amirphl/counter-clean-arch/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Container holds everything built from a ProductionConfig. Exactly one
// CounterRepository is selected and shared by all use cases.
type Container struct {
	Config *config.ProductionConfig
	Logger *zap.Logger

	DB    *gorm.DB
	Redis *redis.Client

	Repository repository.CounterRepository
	Locker     businessflow.CounterLocker

	GetFlow       businessflow.GetCounterFlow
	IncrementFlow businessflow.IncrementCounterFlow
	DecrementFlow businessflow.DecrementCounterFlow
	ResetFlow     businessflow.ResetCounterFlow

	CounterHandler *handlers.CounterHandler

	closers []func() error
}

// New builds a Container. On error any connection opened so far is closed.
func New(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initialize(ctx context.Context) error {
	cfg := c.Config

	if cfg.NeedsRedis() {
		rc, err := initializeCache(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		c.Redis = rc
		c.closers = append(c.closers, rc.Close)
		c.Logger.Info("Redis connection established", zap.Int("db", cfg.Cache.RedisDB))
	}

	repo, err := c.initializeRepository(ctx)
	if err != nil {
		return err
	}
	c.Repository = repo

	c.Locker = c.initializeLocker()

	c.GetFlow = businessflow.NewGetCounterFlow(repo)
	c.IncrementFlow = businessflow.NewIncrementCounterFlow(repo, c.Locker, c.Logger)
	c.DecrementFlow = businessflow.NewDecrementCounterFlow(repo, c.Locker, c.Logger)
	c.ResetFlow = businessflow.NewResetCounterFlow(repo, c.Locker, c.Logger)

	c.CounterHandler = handlers.NewCounterHandler(
		c.GetFlow,
		c.IncrementFlow,
		c.DecrementFlow,
		c.ResetFlow,
		c.Logger,
		cfg.Server.RequestTimeout,
		cfg.Counter.MaxAmount,
	)

	c.Logger.Info("Container initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock_mode", cfg.Counter.LockMode))
	return nil
}

func (c *Container) initializeRepository(ctx context.Context) (repository.CounterRepository, error) {
	cfg := c.Config
	switch cfg.Storage.Driver {
	case config.StorageDriverFile:
		return repository.NewFileCounterRepository(cfg.Storage.CounterFilePath), nil
	case config.StorageDriverMemory:
		return repository.NewMemoryCounterRepository(), nil
	case config.StorageDriverRedis:
		return repository.NewRedisCounterRepository(c.Redis, cfg.Cache.RedisPrefix), nil
	case config.StorageDriverPostgres:
		db, err := initializeDatabase(cfg.Database, c.Logger)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.closers = append(c.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})

		if cfg.Storage.AutoMigrate {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
			}
			if err := migrations.Apply(ctx, sqlDB); err != nil {
				return nil, err
			}
			c.Logger.Info("Migrations applied")
		}
		return repository.NewCounterRepository(db), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func (c *Container) initializeLocker() businessflow.CounterLocker {
	switch c.Config.Counter.LockMode {
	case config.LockModeLocal:
		return businessflow.NewLocalCounterLocker()
	case config.LockModeRedis:
		return businessflow.NewRedisCounterLocker(c.Redis, c.Config.Cache.RedisPrefix, c.Config.Counter.LockTTL, c.Config.Counter.LockWait)
	default:
		return businessflow.NoopLocker{}
	}
}

// HealthCheck pings the backing store. The file and memory drivers are always healthy.
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

// StartCacheHealthMonitor periodically pings redis and logs failures. The
// returned func stops the monitor; it is a no-op when redis is not in use.
func (c *Container) StartCacheHealthMonitor(parent context.Context) func() {
	if c.Redis == nil {
		return func() {}
	}
	monitorCtx, cancel := context.WithCancel(parent)
	interval := c.Config.Cache.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, done := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := c.Redis.Ping(ctx).Err(); err != nil {
					c.Logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				done()
			}
		}
	}()
	return cancel
}

// Close releases connections in reverse order of creation
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Discard}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity
func initializeCache(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	if cfg.RedisDB != 0 {
		opt.DB = cfg.RedisDB
	}

	rc := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}
