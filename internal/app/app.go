package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/domain/auth"
	"github.com/xenking/shop/internal/domain/order"
	"github.com/xenking/shop/internal/domain/product"
	"github.com/xenking/shop/internal/handler"
	"github.com/xenking/shop/internal/notify"
	"github.com/xenking/shop/internal/storage/postgres"
	"github.com/xenking/shop/pkg/health"
	"github.com/xenking/shop/pkg/httpmiddleware"
)

type publisher interface {
	order.Notifier
	Close() error
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("notify", cfg.Notify.Driver),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadiness(health.Check{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(pool),
	})
	healthSvc.AddLiveness(health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})

	pub, err := newPublisher(cfg.Notify, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create publisher")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			lg.Warn("Close publisher", zap.Error(err))
		}
	}()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	productService := product.NewService(productRepo)
	orderService, err := order.NewService(productRepo, orderRepo, pub, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	security := handler.NewSecurity(auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)))
	h := handler.New(handler.Config{MaxUploadBytes: cfg.MaxUploadBytes}, productService, orderService, security)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("shop-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}

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

// newPublisher builds the order-created publisher for the configured driver
// and registers a readiness check for its backend where one exists.
func newPublisher(cfg NotifyConfig, hs *health.Health) (publisher, error) {
	switch cfg.Driver {
	case NotifyRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		hs.AddReadiness(health.Check{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Func:    health.CmdPingCheck(rdb.Ping),
		})
		return notify.NewRedis(rdb, cfg.Channel), nil
	case NotifyKafka:
		return notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return notify.Nop{}, nil
	}
}
