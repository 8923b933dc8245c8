package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/vinq/vinq-crm/internal/database"
	"github.com/vinq/vinq-crm/internal/tasks"
	"github.com/vinq/vinq-crm/pkg/config"
	"github.com/vinq/vinq-crm/pkg/queue"
	"github.com/vinq/vinq-crm/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting VinQ CRM worker", "concurrency", cfg.Worker.Concurrency)

	if err := util.ValidateCronExpr(cfg.Worker.ReminderCron); err != nil {
		logger.Error("invalid REMINDER_CRON", "cron", cfg.Worker.ReminderCron, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	handler := tasks.NewHandler(db, logger, tasks.NewLogMailer(logger), cfg.Worker.ReminderCron)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Worker.ReminderCron, tasks.NewActivityRemindersTask())
	if err != nil {
		logger.Error("failed to schedule activity reminders", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduled activity reminders", "cron", cfg.Worker.ReminderCron, "entry_id", entryID)

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("scheduler error", "error", err)
		srv.Shutdown()
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	logger.Info("worker stopped")
}
