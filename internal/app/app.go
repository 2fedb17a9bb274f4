package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
	"github.com/xenking/cart-coupons/internal/handler"
	"github.com/xenking/cart-coupons/internal/metrics"
	"github.com/xenking/cart-coupons/pkg/health"
	"github.com/xenking/cart-coupons/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("link_policy", cfg.LinkPolicy),
	)

	healthSvc := health.New()
	healthSvc.Register(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Register(health.Liveness, "gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	repos, closeRepos, err := openRepositories(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeRepos()

	coord, closeCoord, err := openCoordination(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeCoord()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h, err := newHandler(cfg, m, repos, coord, metrics.NewCoupons(registry))
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	router.Mount("/api", h.Router())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Accept", "Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(coord.limiter, httpmiddleware.RateLimitConfig{
				Max:                cfg.RateLimit.Max,
				Window:             cfg.RateLimit.Window,
				TrustForwardHeader: cfg.RateLimit.TrustForwardHeader,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("kart-api", m),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func newHandler(
	cfg *Config,
	m *app.Telemetry,
	repos *repositories,
	coord *coordination,
	recorder cart.Recorder,
) (*handler.Handler, error) {
	policy, err := coupon.ParseLinkPolicy(cfg.LinkPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "link policy")
	}

	provisioner := coupon.NewProvisioner(repos.coupons, repos.products, repos.products, policy)
	carts := cart.NewService(
		repos.carts,
		repos.products,
		repos.coupons,
		repos.products,
		coupon.NewRepoValidator(repos.coupons),
		coord.locker,
		cart.WithRecorder(recorder),
		cart.WithTracerProvider(m.TracerProvider()),
		cart.WithLockTTL(cfg.LockTTL),
	)

	return handler.NewHandler(
		product.NewService(repos.products),
		coupon.NewService(repos.coupons, repos.products, provisioner),
		carts,
	), nil
}
