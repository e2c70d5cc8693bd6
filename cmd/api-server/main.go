package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glowclinic/scheduling/internal/api"
	"github.com/glowclinic/scheduling/internal/booking"
	"github.com/glowclinic/scheduling/internal/config"
	"github.com/glowclinic/scheduling/internal/db"
	"github.com/glowclinic/scheduling/internal/notify"
	redisclient "github.com/glowclinic/scheduling/internal/redis"
	"github.com/glowclinic/scheduling/internal/reminders"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s", cfg.Env, cfg.HTTPPort, cfg.Timezone)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	sink := notify.NewPgStore(pgPool)

	var sms notify.SMSSender
	if cfg.SMSGatewayURL != "" {
		sms = notify.NewHTTPSender(cfg.SMSGatewayURL, cfg.SMSGatewayToken, logger)
	} else {
		log.Println("no SMS gateway configured, SMS disabled")
		sms = notify.NewNoopSender(logger)
	}

	bookingSvc := booking.NewService(repo, locker, sink, sms, booking.Options{
		Location: loc,
		Logger:   logger,
	})
	reminderSvc := reminders.NewService(reminders.NewPgRepository(pgPool), sms, reminders.Options{
		Location: loc,
		Logger:   logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Booking:       bookingSvc,
		Notifications: sink,
		Reminders:     reminderSvc,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        logger,
		Env:           cfg.Env,
		Version:       version,
		CronToken:     cfg.CronToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("api-server stopped")
}
