package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"taskstreak/internal/clock"
	"taskstreak/internal/config"
	"taskstreak/internal/logging"
	"taskstreak/internal/repository"
	"taskstreak/internal/service"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg     config.Config
	log     *log.Logger
	db      *gorm.DB
	tasks   *service.TaskService
	sweeper *service.SweepService
	digests *service.ReminderService
	closers []io.Closer
}

func newApp() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &app{cfg: cfg}
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		file := logging.RotatingFile(cfg.LogFile, 0)
		a.closers = append(a.closers, file)
		out = io.MultiWriter(os.Stderr, file)
	}
	a.log = logging.New(logging.Options{Writer: out, Level: cfg.LogLevel})

	db, err := repository.NewDB(cfg.DatabasePath, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("db: %w", err)
	}
	a.db = db

	store := repository.NewStore(db)
	locks := service.NewTaskLocks()
	clk := clock.System()

	a.tasks = service.NewTaskService(store, locks, clk, a.log, service.TaskServiceConfig{
		StreakPolicy: cfg.StreakPolicy,
		WeekStart:    cfg.WeekStart,
	})
	a.sweeper = service.NewSweepService(store, locks, clk, a.log)
	a.digests = service.NewReminderService(a.tasks, clk)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := repository.Close(a.db); err != nil {
			a.log.Warn("close database", "err", err)
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}
