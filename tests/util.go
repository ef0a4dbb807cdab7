package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/user"
)

// Clock is a fixed test clock.
type Clock struct {
	Time time.Time
}

func (c Clock) Now() time.Time { return c.Time }

func NewClock(t time.Time) Clock { return Clock{Time: t.UTC()} }

// Logger discards all output.
type Logger struct{}

func (Logger) Debug(msg string, args ...interface{}) {}
func (Logger) Info(msg string, args ...interface{})  {}
func (Logger) Warn(msg string, args ...interface{})  {}
func (Logger) Error(msg string, args ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, role, subject, course string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		Subject:   subject,
		Course:    course,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword("Password1!"); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo user.Repository, uname, course string) user.User {
	t.Helper()
	return CreateUser(t, repo, uname, uname, uname+"@test.cd", user.RoleStudent, "", course, true)
}

func CreateTeacher(t *testing.T, repo user.Repository, uname, subject, course string) user.User {
	t.Helper()
	return CreateUser(t, repo, uname, uname, uname+"@test.cd", user.RoleTeacher, subject, course, true)
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	title, subject, course, teacherID string,
	due time.Time,
) assignment.Assignment {
	t.Helper()

	a := assignment.Assignment{
		Title:       title,
		Subject:     subject,
		Course:      course,
		TeacherID:   teacherID,
		DueDate:     due.UTC(),
		PeriodStart: due.UTC().AddDate(0, 0, -14),
		PeriodEnd:   due.UTC().AddDate(0, 0, -1),
		MaxScore:    20,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	a, err := repo.CreateAssignment(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}
