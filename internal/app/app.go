package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "rupeeflow/libs/redis"

	"rupeeflow/internal/auth"
	"rupeeflow/internal/config"
	"rupeeflow/internal/db"
	"rupeeflow/internal/fanout"
	httpserver "rupeeflow/internal/http"
	"rupeeflow/internal/http/handlers"
	"rupeeflow/internal/http/middleware"
	"rupeeflow/internal/meter"
	"rupeeflow/internal/redisstore"
	"rupeeflow/internal/repository"
	"rupeeflow/internal/store"
	"rupeeflow/internal/ws"
)

// App wires the meter service dependency graph.
type App struct {
	server      *httpserver.Server
	manager     *ws.Manager
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Postgres and redis are optional
// collaborators: with no DSN or address configured the service runs fully
// in-memory.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sessionStore := store.NewSessionStore()
	clock := meter.NewClock(cfg.Meter.TickInterval)
	engine := meter.NewEngine(sessionStore, clock, meter.Defaults{
		RatePerKwh:     cfg.Meter.DefaultRatePerKwh,
		ChargerPowerKw: cfg.Meter.DefaultChargerPowerKw,
	}, logger)

	var sqlDB *sql.DB
	var sessionRepo *repository.SessionRepository
	if cfg.Database.DSN != "" {
		pool, err := db.NewPostgres(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB = pool
		sessionRepo = repository.NewSessionRepository(pool)
		engine.SetArchiver(sessionRepo)
	} else {
		logger.Info("no database configured, session archive disabled")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			if sqlDB != nil {
				sqlDB.Close()
			}
			return nil, err
		}
		redisClient = client
		engine.SetActiveCache(redisstore.NewStore(client, cfg.ActiveSessionTTL()))
	} else {
		logger.Info("no redis configured, active session mirror disabled")
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, 0)
	gateway := fanout.NewGateway(logger)
	manager := ws.NewManager(cfg.WS.PingInterval)
	engine.SetEmitter(ws.NewRelay(manager, gateway, logger))

	processor := ws.NewCommandProcessor(engine, gateway, logger)
	wsServer := ws.NewServer(manager, processor, gateway, engine, tokens, cfg.WS.WriteTimeout, logger)

	authRequired := middleware.Auth(tokens)
	routes := httpserver.Routes{
		WS:             wsServer.HandleWS,
		Reading:        handlers.NewReadingHandler(engine),
		ActiveSessions: handlers.NewActiveSessionsHandler(engine),
		SessionsMe:     authRequired(handlers.NewSessionsMeHandler(sessionRepo)),
		Health:         handlers.NewHealthHandler(engine),
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = promhttp.Handler()
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		manager:     manager,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the ping loop and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.manager.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
