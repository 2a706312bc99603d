// Diary Pete is a Telegram diary and coaching bot. It onboards users through
// a short setup conversation, stores free-form diary entries, and runs
// recurring coaching sessions from a persistent job table that survives
// restarts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/core/config"
	"github.com/diarypete/diarypete/core/database"
	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/core/telegram"
	"github.com/diarypete/diarypete/diary/coach"
	"github.com/diarypete/diarypete/diary/dispatch"
	"github.com/diarypete/diarypete/diary/schedule"
	"github.com/diarypete/diarypete/diary/store"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "diarypete:", err)
		os.Exit(1)
	}
}

func run() error {
	// Local runs keep secrets in .env; missing file is fine.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	st := store.NewSQL(db)

	sched, err := schedule.NewScheduler()
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	bot, err := tele.NewBot(tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: telegram.BuildPoller(telegram.PollerOptions{
			RunMode:                cfg.Telegram.RunMode,
			LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
			WebhookListen:          cfg.Webhook.Listen,
			WebhookPort:            cfg.Webhook.Port,
			WebhookURL:             cfg.Webhook.URL,
		}),
		Client: telegram.BuildHTTPClient(),
	})
	if err != nil {
		return fmt.Errorf("build bot: %w", err)
	}

	msg := dispatch.NewTelebotMessenger(bot)
	jobs := schedule.NewJobs(st, msg, sched, nil)

	router := dispatch.NewRouter(coach.Deps{
		MSG:   msg,
		Store: st,
		Sched: jobs,
	})
	dispatch.Register(bot, router)

	// Timers must exist before the first update or job can arrive.
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	err = jobs.Restore(restoreCtx)
	cancelRestore()
	if err != nil {
		return fmt.Errorf("restore jobs: %w", err)
	}

	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.TG.Info("shutdown requested", slog.String("event", "tg.stop"))
		bot.Stop()
	}()

	logger.TG.Info("bot starting",
		slog.String("event", "tg.start"),
		slog.String("run_mode", cfg.Telegram.RunMode),
	)
	bot.Start()
	return nil
}
