package service

import (
	"context"
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"taskstreak/internal/clock"
	"taskstreak/internal/model"
	"taskstreak/internal/repository"
	"taskstreak/internal/tracker"
)

// SweepReport summarises one sweep run.
type SweepReport struct {
	Checked int `json:"checked"`
	Reset   int `json:"reset"`
	Stamped int `json:"stamped"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SweepService reopens recurring tasks that are due again and stamps newly
// overdue ones.
type SweepService struct {
	store *repository.Store
	locks *TaskLocks
	clock clock.Clock
	log   *log.Logger
}

func NewSweepService(store *repository.Store, locks *TaskLocks, clk clock.Clock, logger *log.Logger) *SweepService {
	if clk == nil {
		clk = clock.System()
	}
	if locks == nil {
		locks = NewTaskLocks()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SweepService{store: store, locks: locks, clock: clk, log: logger}
}

// Run sweeps every task once. Candidates are picked from a snapshot; each is
// then reloaded under its lock and re-evaluated before saving, so a
// completion that raced the snapshot wins. A failure on one task is logged
// and the rest of the batch continues.
func (s *SweepService) Run(ctx context.Context) (SweepReport, error) {
	now := s.clock.Now()
	tasks, err := s.store.Tasks.ListAll(ctx)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{Checked: len(tasks)}
	candidates := make(map[uint]struct{})
	for _, t := range tracker.SweepRecurring(now, tasks) {
		candidates[t.ID] = struct{}{}
	}
	for _, t := range tracker.StampOverdue(now, tasks) {
		candidates[t.ID] = struct{}{}
	}
	ids := make([]uint, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		reset, stamped, err := s.sweepOne(ctx, id)
		switch {
		case errors.Is(err, model.ErrNotFound):
			report.Skipped++
		case err != nil:
			report.Failed++
			s.log.Warn("sweep task failed", "id", id, "err", err)
		case !reset && !stamped:
			report.Skipped++
		default:
			if reset {
				report.Reset++
			}
			if stamped {
				report.Stamped++
			}
		}
	}

	s.log.Info("sweep finished",
		"checked", report.Checked, "reset", report.Reset, "stamped", report.Stamped,
		"skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (s *SweepService) sweepOne(ctx context.Context, id uint) (reset, stamped bool, err error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		current := *task
		if out := tracker.SweepRecurring(now, []model.Task{current}); len(out) == 1 {
			current, reset = out[0], true
		}
		if out := tracker.StampOverdue(now, []model.Task{current}); len(out) == 1 {
			current, stamped = out[0], true
		}
		if !reset && !stamped {
			return nil
		}
		return tx.Tasks.Save(ctx, &current)
	})
	if err != nil {
		return false, false, err
	}
	return reset, stamped, nil
}
