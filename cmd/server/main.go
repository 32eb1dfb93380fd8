package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pet-tracker/server/internal/alerts"
	"pet-tracker/server/internal/auth"
	"pet-tracker/server/internal/config"
	"pet-tracker/server/internal/geofence"
	"pet-tracker/server/internal/history"
	"pet-tracker/server/internal/ingest"
	"pet-tracker/server/internal/livefeed"
	"pet-tracker/server/internal/store"
	transport "pet-tracker/server/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatalf("postgres connect failed: %v", err)
	}
	defer db.Close()

	rds, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer rds.Close()

	registry := auth.NewDeviceRegistry(cfg, db)
	alertMgr := alerts.NewManager(db, rds)
	evaluator := geofence.NewEvaluator(db, alertMgr)
	ingestSvc := ingest.NewService(registry, db, alertMgr, evaluator, rds)
	historySvc := history.NewService(db)
	feed := livefeed.New(db, time.Duration(cfg.FeedPollIntervalMS)*time.Millisecond)

	sessions := transport.NewSessionMiddleware(auth.NewUserResolver(rds))
	handler := transport.NewHandler(db, ingestSvc, historySvc, alertMgr, feed)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = transport.ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 * 1024,
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/stream") || path == "/metrics"
		},
	}))

	transport.RegisterRoutes(e, handler, sessions)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
