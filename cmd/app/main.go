package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/dealscope/internal/config"
	"github.com/mauv0809/dealscope/internal/db"
	"github.com/mauv0809/dealscope/internal/handlers"
	"github.com/mauv0809/dealscope/internal/ingest"
	"github.com/mauv0809/dealscope/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// Load .env file if it exists (local dev)
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("could not run migrations")
	}
	log.Info("Migrations completed")

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer pool.Close()
	log.Info("Connected to database")

	repo := db.NewRepository(pool)

	client := ingest.NewClient(ingest.Options{
		APIKey:    cfg.RentcastAPIKey,
		BaseURL:   cfg.RentcastBaseURL,
		RateLimit: cfg.RentcastRateLimit,
		Timeout:   cfg.RentcastTimeout,
	}, log)

	analyzer := service.NewAnalyzer(nil)
	deals := service.NewDealService(repo, analyzer, log)
	markets := service.NewMarketComparator(client, repo, log, nil)
	properties := service.NewPropertyService(client, repo, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	handlers.New(deals, markets, properties, log).Routes(e)

	if client.Enabled() {
		handlers.NewLookupHandler(properties, log).Routes(e)
		handlers.NewIngestHandler(markets, log).Routes(e)
		log.Info("Property lookup and market ingestion endpoints registered")
	} else {
		log.Warn("RENTCAST_API_KEY not set, property lookup and market ingestion endpoints disabled")
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	log.Info("Server stopped")
}
