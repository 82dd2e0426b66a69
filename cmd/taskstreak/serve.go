package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskstreak/internal/bot"
	"taskstreak/internal/httpapi"
	"taskstreak/internal/service"
)

const jobTimeout = 30 * time.Second

var (
	serveAddr  string
	serveNoBot bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the background jobs",
	Long: `Run the long-lived process.

The HTTP API listens on TASKSTREAK_HTTP_ADDR (or --addr). The Telegram bot
starts when TELEGRAM_TOKEN is set. The overdue/reset sweep runs every
SWEEP_INTERVAL_MINUTES and the digest is sent daily at DIGEST_TIME.

Examples:
  taskstreak serve
  taskstreak serve --addr :9090 --no-bot`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides TASKSTREAK_HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveNoBot, "no-bot", false, "do not start the Telegram bot")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	botEnabled := a.cfg.BotEnabled() && !serveNoBot
	if addr == "" && !botEnabled {
		return errors.New("nothing to serve: set an HTTP address or a Telegram token")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var telegramBot *bot.Bot
	if botEnabled {
		telegramBot, err = bot.New(a.cfg.TelegramToken, a.cfg.TelegramOwnerID, a.tasks, a.digests, a.log)
		if err != nil {
			return err
		}
	}

	scheduler := service.NewSchedulerService(time.Local, a.log)
	if _, err := scheduler.ScheduleInterval(a.cfg.SweepInterval, func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		report, err := a.sweeper.Run(jobCtx)
		if err != nil {
			a.log.Error("sweep", "err", err)
			return
		}
		a.log.Debug("sweep finished", "checked", report.Checked, "reset", report.Reset, "stamped", report.Stamped)
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	if telegramBot != nil {
		if _, err := scheduler.ScheduleDaily(a.cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			if err := telegramBot.SendDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("digest", "err", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()
	for _, entry := range scheduler.Entries() {
		a.log.Info("job scheduled", "id", entry.ID, "next", entry.Next)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("%s: %w", name, err)
				stop()
			}
		}()
	}

	if addr != "" {
		server := httpapi.NewServer(a.tasks, a.digests, a.sweeper, a.log)
		run("http", func(ctx context.Context) error { return server.Run(ctx, addr) })
	}
	if telegramBot != nil {
		run("bot", telegramBot.Start)
	}

	a.log.Info("taskstreak started", "addr", addr, "bot", telegramBot != nil)
	wg.Wait()
	close(errs)

	var result error
	for err := range errs {
		result = errors.Join(result, err)
	}
	if result == nil {
		a.log.Info("shutdown complete")
	}
	return result
}
