package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glowclinic/scheduling/internal/config"
	"github.com/glowclinic/scheduling/internal/db"
	"github.com/glowclinic/scheduling/internal/notify"
	"github.com/glowclinic/scheduling/internal/reminders"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

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

	log.Printf("running reminder worker in env=%s interval=%s", cfg.Env, cfg.WorkerInterval)

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

	var sms notify.SMSSender
	if cfg.SMSGatewayURL != "" {
		sms = notify.NewHTTPSender(cfg.SMSGatewayURL, cfg.SMSGatewayToken, logger)
	} else {
		log.Println("no SMS gateway configured, reminders will be logged only")
		sms = notify.NewNoopSender(logger)
	}

	svc := reminders.NewService(reminders.NewPgRepository(pgPool), sms, reminders.Options{
		Location: loc,
		Logger:   logger,
	})

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *reminders.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	res, err := svc.Run(runCtx)
	if err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s: sent=%d skipped=%d failed=%d",
		time.Since(start), res.Sent, res.Skipped, res.Failed)
}
