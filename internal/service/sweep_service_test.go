package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"taskstreak/internal/clock"
	"taskstreak/internal/logging"
	"taskstreak/internal/model"
)

func TestSweepService_Run(t *testing.T) {
	env := newTestEnv(t, TaskServiceConfig{})
	ctx := context.Background()
	sweep := NewSweepService(env.store, env.locks, env.clock, logging.Discard())

	habit := env.create(t, TaskInput{Title: "Floss", Recurrence: recurrence(model.Every(1, model.UnitDay))})
	goal := env.create(t, TaskInput{Title: "Swim", Recurrence: recurrence(model.TimesPer(1, model.UnitWeek))})
	due := t0.Add(2 * time.Hour)
	late := env.create(t, TaskInput{Title: "Pay rent", DueDate: &due})
	env.create(t, TaskInput{Title: "Someday"})

	for _, id := range []uint{habit.ID, goal.ID} {
		if _, err := env.tasks.Complete(ctx, id, nil); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	report, err := sweep.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report != (SweepReport{Checked: 4}) {
		t.Fatalf("nothing should change yet: %+v", report)
	}

	env.clock.Advance(8 * clock.Day)
	report, err = sweep.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The habit is reopened and, its new due date already passed, stamped too.
	want := SweepReport{Checked: 4, Reset: 2, Stamped: 2}
	if report != want {
		t.Fatalf("got %+v, want %+v", report, want)
	}

	h, _ := env.tasks.Get(ctx, habit.ID)
	if h.Completed || !h.DueDate.Equal(t0.Add(2*clock.Day)) || h.OverdueSince == nil {
		t.Fatalf("habit not reopened: %+v", h)
	}
	g, _ := env.tasks.Get(ctx, goal.ID)
	if g.Completed || g.CompletionsThisPeriod != 0 || g.CurrentPeriodStart != nil {
		t.Fatalf("goal not reset: %+v", g)
	}
	l, _ := env.tasks.Get(ctx, late.ID)
	if l.OverdueSince == nil || !l.OverdueSince.Equal(env.clock.Now()) {
		t.Fatalf("late task not stamped: %+v", l)
	}

	report, err = sweep.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Reset != 0 || report.Stamped != 0 {
		t.Fatalf("second sweep should be idempotent: %+v", report)
	}

	res, err := env.tasks.Complete(ctx, late.ID, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Task.OverdueSince != nil {
		t.Fatal("completion should clear the overdue stamp")
	}
}

func TestSweepService_RunContinuesPastMissingAndFailingTasks(t *testing.T) {
	env := newTestEnv(t, TaskServiceConfig{})
	ctx := context.Background()
	sweep := NewSweepService(env.store, env.locks, env.clock, logging.Discard())

	due := t0.Add(time.Hour)
	gone := env.create(t, TaskInput{Title: "Deleted mid-sweep", DueDate: &due})
	broken := env.create(t, TaskInput{Title: "Cannot save", DueDate: &due})
	late := env.create(t, TaskInput{Title: "Late", DueDate: &due})
	habit := env.create(t, TaskInput{Title: "Floss", Recurrence: recurrence(model.Every(1, model.UnitDay))})
	if _, err := env.tasks.Complete(ctx, habit.ID, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Remove one task right after the sweep takes its snapshot.
	deleted := false
	err := env.db.Callback().Query().After("gorm:query").Register("test:delete_after_snapshot", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*[]model.Task); !ok || deleted {
			return
		}
		deleted = true
		if err := env.db.Exec("DELETE FROM tasks WHERE id = ?", gone.ID).Error; err != nil {
			t.Errorf("delete: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	err = env.db.Callback().Update().Before("gorm:update").Register("test:fail_save", func(tx *gorm.DB) {
		if task, ok := tx.Statement.Model.(*model.Task); ok && task.ID == broken.ID {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register update callback: %v", err)
	}

	env.clock.Advance(30 * time.Hour)
	report, err := sweep.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := SweepReport{Checked: 4, Reset: 1, Stamped: 1, Skipped: 1, Failed: 1}
	if report != want {
		t.Fatalf("got %+v, want %+v", report, want)
	}

	if l, _ := env.tasks.Get(ctx, late.ID); l.OverdueSince == nil {
		t.Fatalf("late task not stamped: %+v", l)
	}
	if h, _ := env.tasks.Get(ctx, habit.ID); h.Completed {
		t.Fatalf("habit not reopened: %+v", h)
	}
	if b, _ := env.tasks.Get(ctx, broken.ID); b.OverdueSince != nil {
		t.Fatalf("failed save should roll back: %+v", b)
	}
	if env.locks.size() != 0 {
		t.Fatalf("locks leaked: %d", env.locks.size())
	}
}
