package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/clinicsched/libs/config"
	"github.com/md-rashed-zaman/clinicsched/libs/db"
	"github.com/md-rashed-zaman/clinicsched/libs/httpx"
	"github.com/md-rashed-zaman/clinicsched/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicsched/libs/otel"
	"github.com/md-rashed-zaman/clinicsched/libs/runtime"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/grpcserver"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/slotlock"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/storage/memstore"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	var closers []runtime.Closer

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service, version))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		closers = append(closers, runtime.Closer{Name: "otel", Close: otelShutdown})
	}

	loc, err := time.LoadLocation(config.String("CLINIC_TIMEZONE", "UTC"))
	if err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedMetrics := metrics.NewScheduling(reg)
	httpMetrics := httpx.NewHTTPMetrics(metrics.Namespace, reg)

	var checks []runtime.ReadyCheck

	var store scheduling.Store
	var pool *db.Pool
	switch driver := strings.ToLower(config.String("STORE_DRIVER", "postgres")); driver {
	case "postgres":
		pool, err = openPool(ctx)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			return err
		}
		closers = append(closers, runtime.Closer{Name: "db", Close: func(context.Context) error {
			pool.Close()
			return nil
		}})
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		store = storage.NewStore(pool, outbox.NewRepository())
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		store = memstore.New()
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres or memory)", driver)
	}

	var rdb *redis.Client
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		closers = append(closers, runtime.Closer{Name: "redis", Close: func(context.Context) error {
			return rdb.Close()
		}})
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	svcOpts := []scheduling.Option{
		scheduling.WithLocation(loc),
		scheduling.WithLogger(logger),
		scheduling.WithObserver(schedMetrics),
	}
	if strings.EqualFold(config.String("SLOT_LOCK", "none"), "redis") {
		if rdb == nil {
			return errors.New("SLOT_LOCK=redis requires REDIS_URL")
		}
		svcOpts = append(svcOpts, scheduling.WithSlotLocker(slotlock.NewRedisLocker(rdb, slotlock.Config{
			Prefix: service + ":slot",
			TTL:    config.Duration("SLOT_LOCK_TTL", 10*time.Second),
			Wait:   config.Duration("SLOT_LOCK_WAIT", 3*time.Second),
		}, logger)))
	}
	svc := scheduling.New(store, svcOpts...)

	brokers := config.String("KAFKA_BROKERS", "")
	if pool != nil {
		publisher := outbox.NewPublisher(pool, outbox.NewRepository(), logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
			OnPublish: schedMetrics.OutboxPublished,
		})
		if publisher.Enabled() {
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
		}
		go publisher.Run(ctx)
	}

	grpcSrv := grpcserver.New(logger, config.Duration("GRPC_HEALTH_INTERVAL", 10*time.Second), checks...)
	if err := grpcSrv.Start(ctx, ":"+grpcPort); err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	mux := runtime.NewBaseMuxWithReady(reg, checks...)
	handlers.New(svc, logger, config.String("AUTH_JWT_SECRET", "")).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.StringSlice("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", handlers.ClinicIDHeader, "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit(logger, rdb),
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second)),
		httpMetrics.Middleware(),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	closers = append(closers, runtime.Closer{Name: "http", Close: srv.Shutdown})

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store", config.String("STORE_DRIVER", "postgres"), "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	runtime.Shutdown(logger, 15*time.Second, closers...)
	logger.Info("scheduling service stopped")
	return nil
}

// rateLimit charges each clinic its own bucket. RATE_LIMIT_BACKEND=redis shares
// the budget across replicas.
func rateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	key := httpx.HeaderOrClientKey(handlers.ClinicIDHeader)
	if strings.EqualFold(config.String("RATE_LIMIT_BACKEND", "memory"), "redis") && rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 600),
			time.Minute,
			"clinicsched:rl",
			key,
		)
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	return httpx.NewRateLimiter(
		config.Float("RATE_LIMIT_RPS", 20),
		config.Int("RATE_LIMIT_BURST", 40),
		key,
	).Middleware()
}
