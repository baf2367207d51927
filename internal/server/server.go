/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/signboard/internal/api"
	"github.com/friendsincode/signboard/internal/audit"
	"github.com/friendsincode/signboard/internal/campaign"
	"github.com/friendsincode/signboard/internal/config"
	"github.com/friendsincode/signboard/internal/db"
	"github.com/friendsincode/signboard/internal/eventbus"
	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/format"
	"github.com/friendsincode/signboard/internal/sequence"
	"github.com/friendsincode/signboard/internal/stacks"
	"github.com/friendsincode/signboard/internal/telemetry"
	"github.com/friendsincode/signboard/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db       *gorm.DB
	bus      events.Broker
	api      *api.API
	auditSvc *audit.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("signboard-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for the websocket event stream
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 for the websocket stream; the middleware timeout covers the rest
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.RegisterCallbacks(database); err != nil {
		return fmt.Errorf("register db callbacks: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database

	bus, closeBus := NewBroker(s.cfg, s.logger)
	s.bus = bus
	s.DeferClose(closeBus)

	store := sequence.NewStore(database, s.logger)

	client, err := NewStacksClient(s.cfg, s.logger)
	if err != nil {
		return err
	}

	aggregator := campaign.NewAggregator(store, client, bus, AggregatorOptions(s.cfg), s.logger)
	formats := format.NewStore(database, s.logger)
	items := campaign.NewItemService(client, store, formats, bus, s.logger)

	s.auditSvc = audit.NewService(database, bus, s.logger)
	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.cfg.JWTTTL, aggregator, items, store, formats, s.auditSvc, bus, s.logger)

	s.logger.Info().
		Str("version", version.String()).
		Str("db_backend", string(s.cfg.DBBackend)).
		Str("event_bus", string(s.cfg.EventBus)).
		Str("leader_order", string(s.cfg.LeaderOrder)).
		Int("fetch_concurrency", s.cfg.FetchConcurrency).
		Msg("dependencies initialized")
	return nil
}

// NewBroker returns the event bus selected by cfg and a function that closes it.
// Redis and NATS relays degrade to local delivery when the broker is unreachable.
func NewBroker(cfg *config.Config, logger zerolog.Logger) (events.Broker, func() error) {
	nodeID := eventbus.NodeID(cfg.InstanceID)

	switch cfg.EventBus {
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB
		bus := eventbus.NewRedisBus(redisCfg, nodeID, logger)
		return bus, bus.Close
	case config.EventBusNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		bus := eventbus.NewNATSBus(natsCfg, nodeID, logger)
		return bus, bus.Close
	default:
		return events.NewBus(), func() error { return nil }
	}
}

// NewStacksClient builds a Stacks API client from cfg.
func NewStacksClient(cfg *config.Config, logger zerolog.Logger) (*stacks.Client, error) {
	client, err := stacks.New(stacks.Config{
		BaseURL:   cfg.StacksBaseURL,
		Username:  cfg.StacksUsername,
		Password:  cfg.StacksPassword,
		Timeout:   cfg.StacksTimeout,
		RateLimit: cfg.StacksRateLimit,
		Burst:     cfg.StacksBurst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create stacks client: %w", err)
	}
	return client, nil
}

// AggregatorOptions maps configuration onto campaign aggregation options.
func AggregatorOptions(cfg *config.Config) campaign.Options {
	return campaign.Options{
		Concurrency: cfg.FetchConcurrency,
		SlotTimeout: cfg.SlotFetchTimeout,
		LeaderOrder: cfg.LeaderOrder,
	}
}

// Router exposes the configured HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus listener, or nil when disabled.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.auditSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.auditSvc.Start(ctx)
		}()
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			db.ReportConnectionMetrics(ctx, s.db, 30*time.Second)
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runHealthHeartbeat(ctx, 30*time.Second)
	}()
}

// runHealthHeartbeat publishes a health event so websocket clients can detect stale streams.
func (s *Server) runHealthHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.bus.Publish(events.EventHealth, events.Payload{
				"status":  "ok",
				"version": version.Version,
				"time":    t.UTC().Format(time.RFC3339),
			})
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := `{"status":"ok"}`
		if err := s.pingDB(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check database ping failed")
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded","database":"unreachable"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	if s.metricsServer == nil {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}

func (s *Server) pingDB(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
