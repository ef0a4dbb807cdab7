package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
	testutil "github.com/shuleapp/shule/tests"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *assignment.Service
	ledger     *notification.Service
	assignRepo assignment.Repository
	usrRepo    user.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	assignRepo := dummydb.NewAssignmentRepository(db)
	clock := testutil.NewClock(testNow)
	logger := testutil.Logger{}

	ledger := notification.NewService(dummydb.NewNotificationRepository(db), user.NewDirectory(usrRepo), nil, clock, logger)
	svc := assignment.NewService(assignRepo, user.NewDirectory(usrRepo), ledger, clock, logger)
	return fixture{svc: svc, ledger: ledger, assignRepo: assignRepo, usrRepo: usrRepo}
}

func TestNewAssignment_Validate(t *testing.T) {
	validate := validator.New()
	base := assignment.NewAssignment{
		Title:       "Worksheet 1",
		Subject:     "Algebra",
		TeacherID:   "t1",
		PeriodStart: testNow,
		PeriodEnd:   testNow.AddDate(0, 0, 7),
		DueDate:     testNow.AddDate(0, 0, 10),
		MaxScore:    20,
	}

	tests := []struct {
		name    string
		mutate  func(na *assignment.NewAssignment)
		wantErr bool
	}{
		{name: "valid", mutate: func(na *assignment.NewAssignment) {}},
		{name: "start after end", mutate: func(na *assignment.NewAssignment) {
			na.PeriodStart = na.PeriodEnd.AddDate(0, 0, 1)
		}, wantErr: true},
		{name: "start equals end", mutate: func(na *assignment.NewAssignment) {
			na.PeriodStart = na.PeriodEnd
		}, wantErr: true},
		{name: "due before end", mutate: func(na *assignment.NewAssignment) {
			na.DueDate = na.PeriodEnd.AddDate(0, 0, -1)
		}, wantErr: true},
		{name: "zero max score", mutate: func(na *assignment.NewAssignment) {
			na.MaxScore = 0
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := base
			tt.mutate(&na)
			err := na.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Create_courseFromTeacher(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")

	a, err := f.svc.Create(ctx, assignment.NewAssignment{
		Title:       "Lab report",
		Subject:     "Physics",
		TeacherID:   teacher.ID,
		PeriodStart: testNow,
		PeriodEnd:   testNow.AddDate(0, 0, 7),
		DueDate:     testNow.AddDate(0, 0, 10),
		MaxScore:    20,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.Course != "BCA" {
		t.Errorf("Course = %q, want teacher's course BCA", a.Course)
	}

	// unknown teacher cannot be resolved
	_, err = f.svc.Create(ctx, assignment.NewAssignment{
		Title:       "Orphan",
		Subject:     "Physics",
		TeacherID:   "nobody",
		PeriodStart: testNow,
		PeriodEnd:   testNow.AddDate(0, 0, 7),
		DueDate:     testNow.AddDate(0, 0, 10),
		MaxScore:    20,
	})
	if err != assignment.ErrTeacherNotFound {
		t.Errorf("Create() error = %v, want ErrTeacherNotFound", err)
	}
}

func TestService_SubmitGradeResubmit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.AddDate(0, 0, 10))

	// first submission
	sub, err := f.svc.Submit(ctx, assignment.NewSubmission{
		AssignmentID: a.ID, StudentID: hero.ID, FilePath: "uploads/lab-v1.pdf",
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if sub.Status != assignment.StatusSubmitted || sub.Score != nil {
		t.Errorf("submission = %+v, want ungraded submitted", sub)
	}

	// the teacher hears about it
	teacherNotifs, err := f.ledger.ListForUser(ctx, teacher.ID, notification.ListOptions{})
	if err != nil {
		t.Fatalf("ListForUser() failed: %v", err)
	}
	if len(teacherNotifs) != 1 || teacherNotifs[0].Category != notification.CategorySubmissionReceived {
		t.Errorf("teacher notifications = %+v, want one submission_received", teacherNotifs)
	}

	// grading
	graded, err := f.svc.Grade(ctx, sub.ID, 17, "solid work")
	if err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}
	if graded.Status != assignment.StatusGraded || graded.Score == nil || *graded.Score != 17 {
		t.Errorf("graded submission = %+v, want score 17", graded)
	}

	// the student hears about the grade
	heroNotifs, _ := f.ledger.ListForUser(ctx, hero.ID, notification.ListOptions{})
	if len(heroNotifs) != 1 || heroNotifs[0].Category != notification.CategoryGradePosted {
		t.Errorf("student notifications = %+v, want one grade_posted", heroNotifs)
	}

	// resubmission reuses the row and clears the grade
	resub, err := f.svc.Submit(ctx, assignment.NewSubmission{
		AssignmentID: a.ID, StudentID: hero.ID, FilePath: "uploads/lab-v2.pdf",
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if resub.ID != sub.ID {
		t.Errorf("resubmission ID = %q, want original %q", resub.ID, sub.ID)
	}
	if resub.Score != nil || resub.Feedback != "" || resub.Status != assignment.StatusSubmitted {
		t.Errorf("resubmission = %+v, want cleared grade", resub)
	}
	if resub.FilePath != "uploads/lab-v2.pdf" {
		t.Errorf("FilePath = %q, want the new file", resub.FilePath)
	}

	subs, _ := f.svc.Submissions(ctx, a.ID)
	if len(subs) != 1 {
		t.Errorf("submissions = %d, want 1", len(subs))
	}
}

func TestService_Grade_scoreBounds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.AddDate(0, 0, 10))

	sub, err := f.svc.Submit(ctx, assignment.NewSubmission{
		AssignmentID: a.ID, StudentID: hero.ID, FilePath: "uploads/lab.pdf",
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	for _, score := range []int{-1, a.MaxScore + 1} {
		if _, err = f.svc.Grade(ctx, sub.ID, score, ""); err == nil {
			t.Errorf("Grade(%d) accepted an out-of-range score", score)
		} else if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Grade(%d) error = %v, want ValidationError", score, err)
		}
	}
}

func TestService_Delete_cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, f.usrRepo, "newton", "Physics", "BCA")
	hero := testutil.CreateStudent(t, f.usrRepo, "hero", "BCA")
	a := testutil.CreateAssignment(t, f.assignRepo, "Lab report", "Physics", "BCA", teacher.ID, testNow.AddDate(0, 0, 10))

	if _, err := f.ledger.CreateIfAbsent(ctx, notification.NewNotification{
		UserID:      hero.ID,
		Title:       "New assignment: Lab report",
		Category:    notification.CategoryNewAssignment,
		RelatedID:   a.ID,
		RelatedType: notification.RelatedAssignment,
	}); err != nil {
		t.Fatalf("CreateIfAbsent() failed: %v", err)
	}
	if _, err := f.svc.Submit(ctx, assignment.NewSubmission{
		AssignmentID: a.ID, StudentID: hero.ID, FilePath: "uploads/lab.pdf",
	}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := f.svc.GetByID(ctx, a.ID); err != assignment.ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	subs, _ := f.svc.Submissions(ctx, a.ID)
	if len(subs) != 0 {
		t.Errorf("submissions left = %d, want 0", len(subs))
	}
	heroNotifs, _ := f.ledger.ListForUser(ctx, hero.ID, notification.ListOptions{})
	if len(heroNotifs) != 0 {
		t.Errorf("notifications left = %+v, want none", heroNotifs)
	}
}
