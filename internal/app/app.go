package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/handler"
	"github.com/xenking/mercado-storefront/internal/session"
	"github.com/xenking/mercado-storefront/internal/storage/memory"
	"github.com/xenking/mercado-storefront/internal/storage/postgres"
	redisstore "github.com/xenking/mercado-storefront/internal/storage/redis"
	"github.com/xenking/mercado-storefront/internal/storage/remote"
	"github.com/xenking/mercado-storefront/pkg/health"
	"github.com/xenking/mercado-storefront/pkg/httpmiddleware"
	"github.com/xenking/mercado-storefront/web"
)

const sweepInterval = 15 * time.Minute

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("graphql", cfg.GraphQLURL),
		zap.String("sessions", cfg.Session.Backend),
	)
	ctx = zctx.Base(ctx, lg)

	srv, err := newServer(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	defer srv.close()

	srv.health.Start(ctx, 10*time.Second)
	srv.health.SetReady(true)

	httpServer := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		srv.health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// server is the assembled storefront: the root handler with its middleware
// chain, the health service and the cleanup for opened backends.
type server struct {
	handler http.Handler
	health  *health.Health
	close   func()
}

func newServer(ctx context.Context, lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) (*server, error) {
	healthSvc := health.New()

	// Session storage.
	store, closeStore, err := openSessionStore(ctx, cfg.Session, healthSvc)
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}

	// Upstream API clients share one instrumented transport.
	upstream := &http.Client{
		Timeout: cfg.UpstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		),
	}
	gql, err := graphql.New(cfg.GraphQLURL,
		graphql.WithHTTPClient(upstream),
		graphql.WithTracerProvider(tp),
		graphql.WithMeterProvider(mp),
	)
	if err != nil {
		closeStore()
		return nil, errors.Wrap(err, "create graphql client")
	}

	// Repositories.
	productRepo := remote.NewProductRepository(gql)
	cartRepo := remote.NewCartRepository(gql)
	orderRepo := remote.NewOrderRepository(gql)
	userRepo := remote.NewUserRepository(gql)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo)
	orderService := order.NewService(cartService, orderRepo)
	authService := auth.NewService(remote.NewAuthClient(cfg.AuthURL, upstream), userRepo)

	renderer, err := web.NewRenderer()
	if err != nil {
		closeStore()
		return nil, errors.Wrap(err, "parse templates")
	}
	loginLimiter := httpmiddleware.NewLimiter(cfg.LoginRateLimit.Max, cfg.LoginRateLimit.Window)
	go loginLimiter.Run(ctx)

	h := handler.New(handler.Deps{
		Products:     productRepo,
		Carts:        cartService,
		Orders:       orderService,
		Auth:         authService,
		Uploader:     remote.NewUploadClient(cfg.UploadsURL, upstream),
		Renderer:     renderer,
		LoginLimiter: loginLimiter,
	})
	sessions := session.NewManager(store, session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.TTL,
	})

	healthSvc.AddReadinessCheck("graphql", 5*time.Second, health.HTTPCheck(upstream, cfg.GraphQLURL))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Router: probes bypass sessions, pages get session + auth state.
	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Group(func(r chi.Router) {
		r.Use(sessions.Middleware, handler.Authenticate)
		r.Mount("/", h.Routes())
	})

	return &server{
		handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RouteContext(),
			httpmiddleware.Instrument("storefront", tp, mp),
			httpmiddleware.LogRequests(httpmiddleware.ChiRoute),
			httpmiddleware.Labeler(httpmiddleware.ChiRoute),
			httpmiddleware.Compress(0),
		),
		health: healthSvc,
		close:  closeStore,
	}, nil
}

// openSessionStore connects the configured backend, registers its readiness
// check and starts the idle sweeper where the backend needs one.
func openSessionStore(ctx context.Context, cfg SessionConfig, hs *health.Health) (session.Store, func(), error) {
	lg := zctx.From(ctx)
	sweep := func(sw session.Sweeper) {
		go func() {
			if err := session.RunJanitor(ctx, sw, cfg.TTL, sweepInterval); err != nil {
				lg.Error("Session janitor stopped", zap.Error(err))
			}
		}()
	}

	switch cfg.Backend {
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		store := postgres.NewSessionStore(pool)
		hs.AddReadinessCheck("sessions", 5*time.Second, health.PingCheck(store))
		sweep(store)
		return store, pool.Close, nil

	case BackendRedis:
		store, err := redisstore.New(cfg.RedisAddr, cfg.TTL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create redis client")
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		hs.AddReadinessCheck("sessions", 2*time.Second, health.PingCheck(store))
		return store, func() {
			if err := store.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		}, nil

	default:
		lg.Warn("Sessions are kept in memory and are lost on restart")
		store := memory.NewSessionStore()
		sweep(store)
		return store, func() {}, nil
	}
}
