package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/reminder"
	"github.com/shuleapp/shule/core/user"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
	testutil "github.com/shuleapp/shule/tests"
)

var (
	testNow  = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	testConf = core.ReminderConfig{
		Schedule:          "@daily",
		LeadTime:          72 * time.Hour,
		CleanupMaxAgeDays: 30,
	}
)

type fixture struct {
	scheduler  *reminder.Scheduler
	ledger     *notification.Service
	notifRepo  notification.Repository
	usrRepo    user.Repository
	assignRepo assignment.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	assignRepo := dummydb.NewAssignmentRepository(db)
	notifRepo := dummydb.NewNotificationRepository(db)
	clock := testutil.NewClock(testNow)
	logger := testutil.Logger{}

	ledger := notification.NewService(notifRepo, user.NewDirectory(usrRepo), nil, clock, logger)
	engine := distribution.NewEngine(usrRepo, assignRepo, ledger, dummydb.NewAuditLogger(), logger)
	scheduler := reminder.NewScheduler(engine, assignRepo, ledger, clock, logger, testConf)
	return fixture{scheduler: scheduler, ledger: ledger, notifRepo: notifRepo, usrRepo: usrRepo, assignRepo: assignRepo}
}

func unreadByCategory(t *testing.T, f fixture, userID string, cat notification.Category) int {
	t.Helper()

	items, err := f.ledger.ListForUser(context.Background(), userID, notification.ListOptions{})
	if err != nil {
		t.Fatalf("ListForUser() failed: %v", err)
	}
	var count int
	for _, n := range items {
		if n.Category == cat {
			count++
		}
	}
	return count
}

func TestScheduler_RunOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	king := testutil.CreateStudent(t, f.usrRepo, "king", "BCA")

	// due within the lead window
	soon := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.Add(24*time.Hour))
	// due too far out
	testutil.CreateAssignment(t, f.assignRepo, "Final project", "Physics", "BCA", teacher.ID, testNow.Add(30*24*time.Hour))

	// hero already submitted
	if _, err := f.assignRepo.UpsertSubmission(ctx, assignment.Submission{
		AssignmentID: soon.ID,
		StudentID:    hero.ID,
		FilePath:     "uploads/lab.pdf",
		SubmittedAt:  testNow,
		Status:       assignment.StatusSubmitted,
	}); err != nil {
		t.Fatalf("UpsertSubmission() failed: %v", err)
	}

	if err := f.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	if got := unreadByCategory(t, f, king.ID, notification.CategoryDeadlineReminder); got != 1 {
		t.Errorf("king reminders = %d, want 1", got)
	}
	if got := unreadByCategory(t, f, hero.ID, notification.CategoryDeadlineReminder); got != 0 {
		t.Errorf("hero reminders = %d, want 0 (already submitted)", got)
	}

	// a second run adds nothing
	if err := f.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if got := unreadByCategory(t, f, king.ID, notification.CategoryDeadlineReminder); got != 1 {
		t.Errorf("king reminders after re-run = %d, want 1", got)
	}
}

func TestScheduler_RunOnce_preferenceRespected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.Add(24*time.Hour))

	prefs := notification.DefaultPreferences(hero.ID)
	prefs.DeadlineReminders = false
	if _, err := f.ledger.UpdatePreferences(ctx, prefs); err != nil {
		t.Fatalf("UpdatePreferences() failed: %v", err)
	}

	if err := f.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if got := unreadByCategory(t, f, hero.ID, notification.CategoryDeadlineReminder); got != 0 {
		t.Errorf("hero reminders = %d, want 0 (opted out)", got)
	}
}

func TestScheduler_RunOnce_cleansUpStaleNotifications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")

	stale := notification.Notification{
		UserID:    hero.ID,
		Title:     "old news",
		Category:  notification.CategorySystem,
		Priority:  notification.PriorityNormal,
		CreatedAt: testNow.AddDate(0, 0, -31),
	}
	if _, err := f.notifRepo.CreateNotification(ctx, stale); err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}

	if err := f.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	items, err := f.ledger.ListForUser(ctx, hero.ID, notification.ListOptions{})
	if err != nil {
		t.Fatalf("ListForUser() failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("notifications left = %+v, want none", items)
	}
}

func TestScheduler_RunOnce_cancelled(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.Add(24*time.Hour))

	if err := f.scheduler.RunOnce(ctx); err != context.Canceled {
		t.Errorf("RunOnce() error = %v, want context.Canceled", err)
	}
}
