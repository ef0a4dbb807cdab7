package distribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
)

// Result reports a distribution outcome. NoRecipients is a success that
// notified nobody, distinct from a store failure.
type Result struct {
	Notified     int  `json:"notified"`
	NoRecipients bool `json:"no_recipients,omitempty"`
}

// Engine fans a new assignment out to its cohort and back-fills missed
// notifications. All idempotency comes from the ledger's store-level
// uniqueness constraint; the Engine takes no locks.
type Engine struct {
	users       user.Repository
	assignments assignment.Repository
	ledger      *notification.Service
	audit       core.AuditLogger
	logger      core.Logger
}

func NewEngine(
	users user.Repository,
	assignments assignment.Repository,
	ledger *notification.Service,
	audit core.AuditLogger,
	logger core.Logger,
) *Engine {
	return &Engine{
		users:       users,
		assignments: assignments,
		ledger:      ledger,
		audit:       audit,
		logger:      logger,
	}
}

// resolveCourse returns the assignment's stored course, else the owning
// teacher's. Read-only: the stored value is never rewritten here.
func (e *Engine) resolveCourse(ctx context.Context, a assignment.Assignment) (string, error) {
	if a.Course != "" {
		return a.Course, nil
	}
	teacher, err := e.users.GetUserByID(ctx, a.TeacherID)
	if err != nil {
		if err == user.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return teacher.Course, nil
}

// ResolveCohort returns the active students sharing the assignment's resolved
// course, matched case-insensitively. An empty result is a valid outcome.
func (e *Engine) ResolveCohort(ctx context.Context, a assignment.Assignment) ([]user.User, error) {
	course, err := e.resolveCourse(ctx, a)
	if err != nil {
		return nil, err
	}
	if course == "" {
		return nil, nil
	}
	active := true
	return e.users.FilterUsers(ctx, user.QueryFilter{
		Role:     user.RoleStudent,
		IsActive: &active,
		Course:   course,
	})
}

// Distribute creates one new-assignment notification per cohort member.
// Calling it any number of times yields the same notification set: the
// check-then-create runs against the ledger's uniqueness constraint.
func (e *Engine) Distribute(ctx context.Context, assignmentID string) (Result, error) {
	a, err := e.assignments.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}

	cohort, err := e.ResolveCohort(ctx, a)
	if err != nil {
		return Result{}, err
	}
	if len(cohort) == 0 {
		return Result{NoRecipients: true}, nil
	}

	var notified int
	for _, student := range cohort {
		created, err := e.ledger.CreateIfAbsent(ctx, newAssignmentNotification(a, student.ID))
		if err != nil {
			return Result{Notified: notified}, err
		}
		if created {
			notified++
		}
	}

	e.audit.Log(ctx, a.TeacherID, "assignment.distributed",
		fmt.Sprintf("assignment %s distributed to %d of %d students", a.ID, notified, len(cohort)), nil)
	return Result{Notified: notified}, nil
}

// RepairMissing back-fills new-assignment notifications missed by normal
// distribution. It walks every active student with a non-empty subject and
// applies the same create-if-absent rule, so re-running it is always safe.
func (e *Engine) RepairMissing(ctx context.Context) (Result, error) {
	active := true
	students, err := e.users.FilterUsers(ctx, user.QueryFilter{
		Role:     user.RoleStudent,
		IsActive: &active,
	})
	if err != nil {
		return Result{}, err
	}

	var repaired int
	for _, student := range students {
		if student.Subject == "" {
			continue
		}
		candidates, err := e.assignments.FilterAssignments(ctx, assignment.Filter{
			Subject:  student.Subject,
			IsActive: &active,
		})
		if err != nil {
			return Result{Notified: repaired}, err
		}
		for _, a := range candidates {
			if !strings.EqualFold(a.Subject, student.Subject) {
				continue
			}
			created, err := e.ledger.CreateIfAbsent(ctx, newAssignmentNotification(a, student.ID))
			if err != nil {
				return Result{Notified: repaired}, err
			}
			if created {
				repaired++
			}
		}
	}

	if repaired > 0 {
		e.logger.Info(fmt.Sprintf("repair pass back-filled %d notifications", repaired))
	}
	e.audit.Log(ctx, "", "notifications.repaired",
		fmt.Sprintf("repair pass back-filled %d notifications", repaired), nil)
	return Result{Notified: repaired}, nil
}

func newAssignmentNotification(a assignment.Assignment, studentID string) notification.NewNotification {
	return notification.NewNotification{
		UserID:      studentID,
		Title:       fmt.Sprintf("New assignment: %s", a.Title),
		Body:        fmt.Sprintf("%s, due %s", a.Subject, a.DueDate.Format("Jan 2, 2006")),
		Category:    notification.CategoryNewAssignment,
		RelatedID:   a.ID,
		RelatedType: notification.RelatedAssignment,
		Priority:    notification.PriorityNormal,
	}
}
