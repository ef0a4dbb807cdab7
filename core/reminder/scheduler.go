package reminder

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
)

// Scheduler runs the periodic deadline-reminder pass. It shares no in-process
// state with request handlers; all coordination happens through the store, and
// every notification create commits independently, so an aborted run leaves
// nothing to undo and the next run picks up where it left off.
type Scheduler struct {
	engine      *distribution.Engine
	assignments assignment.Repository
	ledger      *notification.Service
	clock       core.Clock
	logger      core.Logger
	conf        core.ReminderConfig

	cron *cron.Cron
}

func NewScheduler(
	engine *distribution.Engine,
	assignments assignment.Repository,
	ledger *notification.Service,
	clock core.Clock,
	logger core.Logger,
	conf core.ReminderConfig,
) *Scheduler {
	return &Scheduler{
		engine:      engine,
		assignments: assignments,
		ledger:      ledger,
		clock:       clock,
		logger:      logger,
		conf:        conf,
	}
}

// Start schedules RunOnce on the configured cron expression.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.conf.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("reminder run failed: %v", err), err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("reminder scheduler started (%s)", s.conf.Schedule))
	return nil
}

// Stop halts the schedule. A run already in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce executes a single reminder pass: deadline reminders for every
// non-submitted cohort member of each assignment nearing its due date, then an
// age-based ledger sweep. The pass is interruptible between assignments and
// safe to re-run; notifications already created stay put.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	active := true
	dueSoon, err := s.assignments.FilterAssignments(ctx, assignment.Filter{
		IsActive:  &active,
		DueAfter:  now,
		DueBefore: now.Add(s.conf.LeadTime),
	})
	if err != nil {
		return err
	}

	var sent int
	for _, a := range dueSoon {
		if err = ctx.Err(); err != nil {
			return err
		}
		n, err := s.remind(ctx, a)
		if err != nil {
			return err
		}
		sent += n
	}

	removed, err := s.ledger.Cleanup(ctx, s.conf.CleanupMaxAgeDays)
	if err != nil {
		return err
	}
	s.logger.Info(fmt.Sprintf("reminder run: %d reminders sent, %d stale notifications removed", sent, removed))
	return nil
}

func (s *Scheduler) remind(ctx context.Context, a assignment.Assignment) (int, error) {
	cohort, err := s.engine.ResolveCohort(ctx, a)
	if err != nil {
		return 0, err
	}
	if len(cohort) == 0 {
		return 0, nil
	}

	submittedIDs, err := s.assignments.SubmittedStudentIDs(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	submitted := make(map[string]struct{}, len(submittedIDs))
	for _, id := range submittedIDs {
		submitted[id] = struct{}{}
	}

	var sent int
	for _, student := range cohort {
		if _, ok := submitted[student.ID]; ok {
			continue
		}
		created, err := s.ledger.CreateIfAbsent(ctx, notification.NewNotification{
			UserID:      student.ID,
			Title:       fmt.Sprintf("Reminder: %q is due soon", a.Title),
			Body:        fmt.Sprintf("Due %s", a.DueDate.Format("Jan 2, 2006 15:04 MST")),
			Category:    notification.CategoryDeadlineReminder,
			RelatedID:   a.ID,
			RelatedType: notification.RelatedAssignment,
			Priority:    notification.PriorityHigh,
		})
		if err != nil {
			return sent, err
		}
		if created {
			sent++
		}
	}
	return sent, nil
}
