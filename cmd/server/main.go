package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nilelink/ledger/internal/api"
	"github.com/nilelink/ledger/internal/auth"
	"github.com/nilelink/ledger/internal/config"
	"github.com/nilelink/ledger/internal/events"
	"github.com/nilelink/ledger/internal/middleware"
	"github.com/nilelink/ledger/internal/service"
	"github.com/nilelink/ledger/internal/storage/sqlite"
	"github.com/nilelink/ledger/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.DBPath)

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.KafkaBrokers != "" {
		writer := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer)
		slog.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	settlements := service.NewSettlementService(store, publisher, cfg.FeeBps, cfg.FeeRecipient)
	dividends := service.NewDividendService(store, publisher)
	credit := service.NewCreditService(store, publisher)

	var handler *api.Handler
	if cfg.RedisAddr != "" {
		rdb := config.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		handler = api.NewHandler(settlements, dividends, credit, store, rdb)
		slog.Info("idempotent-key guard enabled", "redis", cfg.RedisAddr)
	} else {
		handler = api.NewHandler(settlements, dividends, credit, store, nil)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)

	e := echo.New()
	e.HideBanner = true

	limiterConfig := echomw.RateLimiterConfig{
		Skipper: echomw.DefaultSkipper,
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(
			echomw.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(100),
				Burst:     200,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.RequestLogging())
	e.Use(echomw.Recover())
	e.Use(echomw.RateLimiterWithConfig(limiterConfig))

	handler.Register(e, middleware.RequireCapability(jwtManager))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	slog.Info("ledger server starting", "address", cfg.HTTPAddr)
	if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
