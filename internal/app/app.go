package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/birlikkoshan/tasksync/internal/ai"
	"github.com/birlikkoshan/tasksync/internal/cache"
	"github.com/birlikkoshan/tasksync/internal/config"
	"github.com/birlikkoshan/tasksync/internal/migrations"
	"github.com/birlikkoshan/tasksync/internal/realtime"
	"github.com/birlikkoshan/tasksync/internal/repo"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg      config.Config
	log      *slog.Logger
	db       *sqlx.DB
	redis    *redis.Client
	hub      *realtime.Hub
	redisBus *realtime.RedisBus
	router   *gin.Engine
}

// New connects to Postgres and, when configured, Redis, applies migrations
// and builds the router. ctx bounds websocket connections for the life of
// the process.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, hub: realtime.NewHub()}

	db, err := NewPostgres(cfg.PG)
	if err != nil {
		return nil, err
	}
	a.db = db

	if cfg.Redis.Enabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.redis = rdb
	} else {
		log.Warn("redis not configured: task cache and cross-instance fan-out disabled")
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, db.DB); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	deps := Deps{
		Users:   repo.NewPGUserRepo(db),
		Lists:   repo.NewPGListRepo(db),
		Tasks:   repo.NewPGTaskRepo(db),
		Hub:     a.hub,
		Bus:     a.hub,
		BaseCtx: ctx,
		Parser: ai.NewGemini(ai.Config{
			APIKey:  cfg.AI.GeminiAPIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout.Duration(),
		}),
	}
	if a.redis != nil {
		deps.TaskCache = cache.NewTaskCache(a.redis, cfg.Redis.DefaultTTL.Duration())
		a.redisBus = realtime.NewRedisBus(a.redis, a.hub)
		deps.Bus = a.redisBus
	}
	if cfg.AI.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set: /parse-task will answer 503")
	}

	a.router = NewRouter(cfg, log, deps)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Run drives the background event fan-out until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.redisBus == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.redisBus.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Close disconnects websocket clients and releases Redis and Postgres.
func (a *App) Close(ctx context.Context) error {
	_ = ctx
	a.hub.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// NewPostgres opens a pool through the pgx database/sql driver and pings it.
func NewPostgres(cfg config.PGConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg open: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(min(2, maxConns))
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return db, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

// NewRouter builds the engine with recovery, request ids, access logging and
// CORS, then registers every route.
func NewRouter(cfg config.Config, log *slog.Logger, d Deps) *gin.Engine {
	if !cfg.App.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Access-Token", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, d)
	return r
}
