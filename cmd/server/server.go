package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/cvforge/server/api/rest/health"
	"codeberg.org/cvforge/server/cvforge/users"
	"codeberg.org/cvforge/server/internal/config"
	"codeberg.org/cvforge/server/internal/counter"
	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/notify"
)

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	server := &Server{config: cfg}

	if err := server.connect(ctx); err != nil {
		server.Close()
		return nil, err
	}

	store, err := server.openCounterStore(ctx)
	if err != nil {
		server.Close()
		return nil, err
	}

	server.store = store

	if err := server.openUserRepo(ctx); err != nil {
		server.Close()
		return nil, err
	}

	services, err := InitializeServices(cfg, store)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	server.services = services
	server.hub = notify.NewHub()

	// with redis every instance hears about every change; otherwise local only
	if server.redis != nil {
		server.fanout = notify.NewRedisFanout(server.redis, server.hub)
		services.Quota.OnChange(server.fanout.Publish)
	} else {
		services.Quota.OnChange(server.hub.NotifyCredits)
	}

	server.upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     notify.OriginChecker(cfg.Environment, cfg.CORSOrigins),
	}

	limit, err := RateLimitMiddleware(cfg.RateLimit, server.redis)
	if err != nil {
		server.Close()
		return nil, err
	}

	server.limit = limit

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	server.router = router

	RegisterRoutes(router, server)

	logger.Info("server initialized",
		"counter_store", cfg.CounterStore,
		"enhancer", cfg.EnhancerProvider,
		"oauth", cfg.OAuth.Enabled,
		"redis_fanout", server.fanout != nil,
	)

	return server, nil
}

// opens the shared postgres pool and redis client when configured
func (s *Server) connect(ctx context.Context) error {
	if s.config.DatabaseURL != "" {
		db, err := openPool(ctx, s.config.DatabaseURL)
		if err != nil {
			return err
		}

		s.db = db
		s.checks = append(s.checks, health.Check{Name: "postgres", Probe: db.Ping})
	}

	if s.config.RedisURL != "" {
		opts, err := redis.ParseURL(s.config.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}

		client := redis.NewClient(opts)
		s.redis = client

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		s.checks = append(s.checks, health.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	return nil
}

func openPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// small pool, sized for hosted poolers
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// pgBouncer in transaction mode doesn't support prepared statements
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (s *Server) openCounterStore(ctx context.Context) (counter.Store, error) {
	switch s.config.CounterStore {
	case config.StorePostgres:
		store := counter.NewPostgresStore(s.db)
		if err := store.Initialize(ctx); err != nil {
			return nil, err
		}

		return store, nil

	case config.StoreRedis:
		return counter.NewRedisStore(s.redis), nil

	case config.StoreSQLite:
		store, err := counter.OpenSQLiteStore(ctx, s.config.SQLitePath)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, store.Close)
		return store, nil

	case config.StoreMemory:
		logger.Warn("using in-memory counter store, usage is lost on restart")
		return counter.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown counter store %q", s.config.CounterStore)
	}
}

func (s *Server) openUserRepo(ctx context.Context) error {
	if s.db == nil {
		s.userRepo = users.NewMemoryRepository()
		return nil
	}

	repo := users.NewRepository(s.db)
	if err := repo.Initialize(ctx); err != nil {
		return err
	}

	s.userRepo = repo
	return nil
}

// releases stores and connections; safe on a partially built server
func (s *Server) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.ErrorErr(err, "failed to close resource")
		}
	}

	if s.redis != nil {
		s.redis.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	if s.db != nil {
		s.db.Close()
	}
}
