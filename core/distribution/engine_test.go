package distribution_test

import (
	"context"
	"testing"
	"time"

	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
	testutil "github.com/shuleapp/shule/tests"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine     *distribution.Engine
	ledger     *notification.Service
	usrRepo    user.Repository
	assignRepo assignment.Repository
	audit      *dummydb.AuditLogger
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	assignRepo := dummydb.NewAssignmentRepository(db)
	audit := dummydb.NewAuditLogger()
	clock := testutil.NewClock(testNow)
	logger := testutil.Logger{}

	ledger := notification.NewService(dummydb.NewNotificationRepository(db), user.NewDirectory(usrRepo), nil, clock, logger)
	engine := distribution.NewEngine(usrRepo, assignRepo, ledger, audit, logger)
	return fixture{engine: engine, ledger: ledger, usrRepo: usrRepo, assignRepo: assignRepo, audit: audit}
}

func TestEngine_Distribute(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	// course matching ignores case
	king := testutil.CreateStudent(t, f.usrRepo, "king", "bca")
	// wrong course and inactive students are left out
	testutil.CreateStudent(t, f.usrRepo, "ace", "MBA")
	lazy := testutil.CreateUser(t, f.usrRepo, "Lazy", "lazy", "lazy@test.cd", user.RoleStudent, "", "BCA", false)

	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.AddDate(0, 0, 10))

	res, err := f.engine.Distribute(ctx, a.ID)
	if err != nil {
		t.Fatalf("Distribute() failed: %v", err)
	}
	if res.Notified != 2 || res.NoRecipients {
		t.Errorf("Distribute() = %+v, want 2 notified", res)
	}

	for _, usr := range []user.User{hero, king} {
		count, _ := f.ledger.UnreadCount(ctx, usr.ID)
		if count != 1 {
			t.Errorf("UnreadCount(%s) = %d, want 1", usr.Username, count)
		}
	}
	if count, _ := f.ledger.UnreadCount(ctx, lazy.ID); count != 0 {
		t.Errorf("inactive student was notified")
	}

	// re-running distributes nothing new
	res, err = f.engine.Distribute(ctx, a.ID)
	if err != nil {
		t.Fatalf("Distribute() failed: %v", err)
	}
	if res.Notified != 0 {
		t.Errorf("second Distribute() notified = %d, want 0", res.Notified)
	}
	if count, _ := f.ledger.UnreadCount(ctx, hero.ID); count != 1 {
		t.Errorf("UnreadCount() = %d after re-run, want 1", count)
	}

	if len(f.audit.Entries) == 0 || f.audit.Entries[0].Action != "assignment.distributed" {
		t.Errorf("audit entries = %+v, want assignment.distributed", f.audit.Entries)
	}
}

func TestEngine_Distribute_noRecipients(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "MBA", teacher.ID, testNow.AddDate(0, 0, 10))

	res, err := f.engine.Distribute(ctx, a.ID)
	if err != nil {
		t.Fatalf("Distribute() failed: %v", err)
	}
	if !res.NoRecipients || res.Notified != 0 {
		t.Errorf("Distribute() = %+v, want NoRecipients", res)
	}

	// a missing assignment is an error, not an empty success
	if _, err = f.engine.Distribute(ctx, "missing"); err != assignment.ErrNotFound {
		t.Errorf("Distribute(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEngine_Distribute_courseFromTeacher(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	// no stored course: the owning teacher's course stands in
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "", teacher.ID, testNow.AddDate(0, 0, 10))

	res, err := f.engine.Distribute(ctx, a.ID)
	if err != nil {
		t.Fatalf("Distribute() failed: %v", err)
	}
	if res.Notified != 1 {
		t.Errorf("Distribute() notified = %d, want 1", res.Notified)
	}
	if count, _ := f.ledger.UnreadCount(ctx, hero.ID); count != 1 {
		t.Errorf("UnreadCount() = %d, want 1", count)
	}
}

func TestEngine_RepairMissing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.AddDate(0, 0, 10))

	if _, err := f.engine.Distribute(ctx, a.ID); err != nil {
		t.Fatalf("Distribute() failed: %v", err)
	}

	// a student enrolled after distribution, tracking the subject
	// with a different case
	late := testutil.CreateUser(t, f.usrRepo, "Late", "late", "late@test.cd", user.RoleStudent, "physics", "BCA", true)

	res, err := f.engine.RepairMissing(ctx)
	if err != nil {
		t.Fatalf("RepairMissing() failed: %v", err)
	}
	if res.Notified != 1 {
		t.Errorf("RepairMissing() = %+v, want 1 back-filled", res)
	}
	if count, _ := f.ledger.UnreadCount(ctx, late.ID); count != 1 {
		t.Errorf("UnreadCount(late) = %d, want 1", count)
	}
	// the originally notified student gained nothing
	if count, _ := f.ledger.UnreadCount(ctx, hero.ID); count != 1 {
		t.Errorf("UnreadCount(hero) = %d, want 1", count)
	}

	// a second pass finds nothing to do
	res, err = f.engine.RepairMissing(ctx)
	if err != nil {
		t.Fatalf("RepairMissing() failed: %v", err)
	}
	if res.Notified != 0 {
		t.Errorf("second RepairMissing() = %+v, want 0", res)
	}
}
