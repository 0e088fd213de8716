package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/despasys/despasys/libs/config"
	"github.com/despasys/despasys/libs/db"
	"github.com/despasys/despasys/libs/httpx"
	"github.com/despasys/despasys/libs/kafkax"
	otelx "github.com/despasys/despasys/libs/otel"
	"github.com/despasys/despasys/libs/rtdb"
	"github.com/despasys/despasys/libs/runtime"
	"github.com/despasys/despasys/services/admin-service/internal/dualwrite"
	"github.com/despasys/despasys/services/admin-service/internal/handlers"
	"github.com/despasys/despasys/services/admin-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "admin-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	if config.Bool("RUN_MIGRATIONS", true) {
		if err := storage.RunMigrations(dbURL); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		logger.Info("migrations applied")
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}

	// Realtime mirror is optional: without Redis the admin API still
	// works, side effects just report skipped.
	var store rtdb.Store
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		store = rtdb.NewRedisStore(rdb, config.String("RTDB_PREFIX", "rtdb"))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: rtdb.ReadyCheck(rdb)})
		logger.Info("realtime mirror enabled", "redis_addr", addr)
	} else {
		logger.Warn("realtime mirror disabled (no REDIS_ADDR)")
	}

	var publisher *dualwrite.Publisher
	var writer *kafka.Writer
	if brokersRaw := config.String("KAFKA_BROKERS", ""); brokersRaw != "" {
		brokers := kafkax.SplitBrokers(brokersRaw)
		admin := kafkax.NewTopicAdmin(brokers)
		admin.NumPartitions = config.Int("KAFKA_TOPIC_PARTITIONS", 1)
		admin.ReplicationFactor = config.Int("KAFKA_REPLICATION_FACTOR", 1)
		writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
		defer func() { _ = writer.Close() }()
		publisher = dualwrite.NewPublisher(admin, writer, config.String("TOPIC_PREFIX", "despasys"), logger)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokersRaw)})
		logger.Info("event publishing enabled", "brokers", brokersRaw)
	} else {
		logger.Warn("event publishing disabled (no KAFKA_BROKERS)")
	}

	writes := dualwrite.NewService(
		dualwrite.NewMirror(store, logger),
		publisher,
		logger,
		config.Bool("SYNC_STRICT_EVENTS", false),
	)

	h := handlers.New(repo, writes, publisher, jwtSecret, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/auth/login", h.Login)
	mux.HandleFunc("/api/v1/auth/me", h.RequireAuth(h.Me))
	mux.HandleFunc("/api/v1/tenants", h.Tenants)
	mux.HandleFunc("/api/v1/customers", h.RequireAuth(h.Customers))
	mux.HandleFunc("/api/v1/vehicles", h.RequireAuth(h.Vehicles))
	mux.HandleFunc("/api/v1/processes", h.RequireAuth(h.Processes))
	mux.HandleFunc("/api/v1/processes/status", h.RequireAuth(h.ProcessStatus))
	mux.HandleFunc("/api/v1/licensings", h.RequireAuth(h.Licensings))
	mux.HandleFunc("/api/v1/licensings/status", h.RequireAuth(h.DocumentStatusFor("licensings")))
	mux.HandleFunc("/api/v1/transfers", h.RequireAuth(h.Transfers))
	mux.HandleFunc("/api/v1/transfers/status", h.RequireAuth(h.DocumentStatusFor("transfers")))
	mux.HandleFunc("/api/v1/registrations", h.RequireAuth(h.Registrations))
	mux.HandleFunc("/api/v1/registrations/status", h.RequireAuth(h.DocumentStatusFor("registrations")))
	mux.HandleFunc("/api/v1/unlocks", h.RequireAuth(h.Unlocks))
	mux.HandleFunc("/api/v1/unlocks/status", h.RequireAuth(h.DocumentStatusFor("unlocks")))
	mux.HandleFunc("/api/v1/reports", h.RequireAuth(h.Reports))
	mux.HandleFunc("/api/v1/evaluations", h.RequireAuth(h.Evaluations))
	mux.HandleFunc("/api/v1/finance/transactions", h.RequireAuth(h.Transactions))
	mux.HandleFunc("/api/v1/finance/cashflow", h.RequireAuth(h.CashFlow))
	mux.HandleFunc("/api/v1/notifications", h.RequireAuth(h.Notifications))

	// Rate limiting shares its window through Redis when available so all
	// replicas count against the same budget; single-node deployments fall
	// back to the in-process limiter.
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Middleware
	if rdb != nil {
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, "rl:admin").Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList("GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders: parseList("Authorization,Content-Type,X-Request-Id"),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		limiter,
	)
	handler = otelhttp.NewHandler(handler, "admin")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func parseList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
