// Package app wires the catalog server together.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/handler"
	"github.com/xenking/catalog-browser/internal/productapi"
	"github.com/xenking/catalog-browser/pkg/health"
	"github.com/xenking/catalog-browser/pkg/httpmiddleware"
)

const serviceName = "catalog-server"

// upstream is a product.Service that can also be probed.
type upstream interface {
	product.Service
	health.Pinger
}

// newUpstream returns the demo catalog or an API client, depending on cfg.
func newUpstream(cfg *Config, m *app.Telemetry) (upstream, error) {
	if cfg.Demo {
		return productapi.NewDemo(), nil
	}
	client, err := productapi.NewClient(productapi.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Timeout:        cfg.Upstream.Timeout,
		UserAgent:      cfg.Upstream.UserAgent,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create catalog client")
	}
	return client, nil
}

// Run creates all dependencies, starts the HTTP server and the probe loop,
// and handles graceful shutdown. It is the single wiring point for the
// server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.Bool("demo", cfg.Demo),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	svc, err := newUpstream(cfg, m)
	if err != nil {
		return err
	}

	repo := catalog.NewRepository(svc, lg.Named("repository"), m.TracerProvider())
	store, err := catalog.NewStore(repo, lg.Named("store"), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create store")
	}
	defer store.Close()

	unsubscribe := LogTransitions(lg.Named("state"), store)
	defer unsubscribe()

	// Warm the list slot so the first UI poll sees data.
	store.LoadList()

	monitor := health.New(lg.Named("health"))
	monitor.AddReadiness("catalog-api", cfg.Health.ProbeTimeout, health.Reachable(svc),
		health.WithThresholds(cfg.Health.FailureStreak, cfg.Health.RecoveryStreak),
	)
	monitor.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))
	monitor.AddLiveness("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", monitor.LiveEndpoint)
	mux.HandleFunc("GET /readyz", monitor.ReadyEndpoint)
	handler.NewHandler(store).Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		// Event streams end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:  cfg.CORS.Origins,
				AllowHeaders:  []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
				MaxAge:        86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			// Each load command starts an upstream request.
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Limit:  httpmiddleware.OnlyMethods(http.MethodPost),
			}),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitor.Run(gCtx, cfg.Health.Interval)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		monitor.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		monitor.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// LogTransitions logs every state published by store and returns a function
// that stops logging.
func LogTransitions(lg *zap.Logger, store *catalog.Store) (stop func()) {
	stopList := store.ListState().Subscribe(func(s catalog.ListState) {
		fields := []zap.Field{zap.String("slot", "list"), zap.Stringer("status", s.Status)}
		if products, ok := s.Get(); ok {
			fields = append(fields, zap.Int("products", len(products)))
		}
		logState(lg, s.Status, s.Message, s.Code, fields)
	})
	stopDetail := store.DetailState().Subscribe(func(s catalog.DetailState) {
		fields := []zap.Field{zap.String("slot", "detail"), zap.Stringer("status", s.Status)}
		if p, ok := s.Get(); ok {
			fields = append(fields, zap.Int64("product_id", p.ID))
		}
		logState(lg, s.Status, s.Message, s.Code, fields)
	})
	return func() {
		stopList()
		stopDetail()
	}
}

func logState(lg *zap.Logger, status catalog.Status, message string, code int, fields []zap.Field) {
	if status == catalog.StatusError {
		fields = append(fields, zap.String("message", message))
		if code != 0 {
			fields = append(fields, zap.Int("code", code))
		}
		lg.Warn("State changed", fields...)
		return
	}
	lg.Debug("State changed", fields...)
}
