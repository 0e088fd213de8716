package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/despasys/despasys/libs/config"
	"github.com/despasys/despasys/libs/httpx"
	"github.com/despasys/despasys/libs/kafkax"
	otelx "github.com/despasys/despasys/libs/otel"
	"github.com/despasys/despasys/libs/rtdb"
	"github.com/despasys/despasys/libs/runtime"
	"github.com/despasys/despasys/services/relay-service/internal/consumer"
	"github.com/despasys/despasys/services/relay-service/internal/handlers"
	"github.com/despasys/despasys/services/relay-service/internal/relay"
)

func main() {
	service := config.String("SERVICE_NAME", "relay-service")
	port, err := config.Port("PORT", "8081")
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

	redisAddr, err := config.RequiredString("REDIS_ADDR")
	if err != nil {
		panic(err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	defer func() { _ = rdb.Close() }()
	store := rtdb.NewRedisStore(rdb, config.String("RTDB_PREFIX", "rtdb"))

	rel := relay.New(store, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "redis", Check: rtdb.ReadyCheck(rdb)},
	}

	brokersRaw := config.String("KAFKA_BROKERS", "")
	topics := kafkax.SplitBrokers(config.String("RELAY_TOPICS", ""))
	if brokersRaw != "" && len(topics) > 0 {
		cons := consumer.New(logger, rel, consumer.Config{
			Brokers: brokersRaw,
			GroupID: config.String("KAFKA_GROUP_ID", "relay-service"),
			Topics:  topics,
		})
		go cons.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokersRaw)})
		logger.Info("consumer started", "brokers", brokersRaw, "topics", topics)
	} else {
		logger.Warn("consumer disabled (KAFKA_BROKERS or RELAY_TOPICS not set)")
	}

	push := handlers.NewPushHandler(rel, config.String("PUSH_TOKEN", ""), logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/relay", push)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "relay")

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
