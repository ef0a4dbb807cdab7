package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/notification"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidPeriod      = errors.New("invalid assignment period")
	ErrTeacherNotFound    = errors.New("owning teacher not found")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		FilterAssignments(ctx context.Context, filter Filter) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// DeleteAssignment cascades to the assignment's submissions.
		DeleteAssignment(ctx context.Context, id string) error

		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// UpsertSubmission enforces at most one submission per (assignment, student).
		UpsertSubmission(ctx context.Context, s Submission) (Submission, error)
		FilterSubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		// SubmittedStudentIDs lists students holding a submission for the assignment.
		SubmittedStudentIDs(ctx context.Context, assignmentID string) ([]string, error)
	}

	// TeacherDirectory resolves an assignment's owning teacher.
	TeacherDirectory interface {
		TeacherCourse(ctx context.Context, teacherID string) (string, error)
	}

	Service struct {
		repo     Repository
		teachers TeacherDirectory
		ledger   *notification.Service
		clock    core.Clock
		logger   core.Logger
	}
)

func NewService(repo Repository, teachers TeacherDirectory, ledger *notification.Service, clock core.Clock, logger core.Logger) *Service {
	return &Service{repo: repo, teachers: teachers, ledger: ledger, clock: clock, logger: logger}
}

// Create stores a new assignment. An empty course is denormalized from the
// owning teacher at creation time.
func (svc *Service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	now := svc.clock.Now()
	a := Assignment{
		Title:       na.Title,
		Description: na.Description,
		Subject:     na.Subject,
		Course:      na.Course,
		TeacherID:   na.TeacherID,
		DueDate:     na.DueDate.UTC(),
		PeriodStart: na.PeriodStart.UTC(),
		PeriodEnd:   na.PeriodEnd.UTC(),
		MaxScore:    na.MaxScore,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a.Course == "" {
		course, err := svc.teachers.TeacherCourse(ctx, a.TeacherID)
		if err != nil {
			return Assignment{}, err
		}
		a.Course = course
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter Filter) ([]Assignment, error) {
	return svc.repo.FilterAssignments(ctx, filter)
}

// SetActive toggles an assignment's status. Core fields stay immutable.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (Assignment, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	a.IsActive = active
	a.UpdatedAt = svc.clock.Now()
	return svc.repo.UpdateAssignment(ctx, a)
}

// Delete removes an assignment, its submissions and any notifications
// referencing it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetAssignmentByID(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	return svc.ledger.DeleteRelated(ctx, notification.RelatedAssignment, id)
}

// Submit records a student's work. Resubmission before grading overwrites the
// file reference and timestamp in place and clears any prior grade/feedback,
// resetting the status to submitted. The owning teacher is notified.
func (svc *Service) Submit(ctx context.Context, ns NewSubmission) (Submission, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := svc.clock.Now()
	sub, err := svc.repo.GetSubmission(ctx, ns.AssignmentID, ns.StudentID)
	switch err {
	case nil: // resubmission: same row, grade cleared
		sub.FilePath = ns.FilePath
		sub.SubmittedAt = now
		sub.Score = nil
		sub.Feedback = ""
		sub.Status = StatusSubmitted
		sub.UpdatedAt = now
	case ErrSubmissionNotFound:
		sub = Submission{
			AssignmentID: ns.AssignmentID,
			StudentID:    ns.StudentID,
			FilePath:     ns.FilePath,
			SubmittedAt:  now,
			Status:       StatusSubmitted,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	default:
		return Submission{}, err
	}

	sub, err = svc.repo.UpsertSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	// the submission is already committed; a failed notification must not undo it
	if _, _, err = svc.ledger.Create(ctx, notification.NewNotification{
		UserID:      a.TeacherID,
		Title:       fmt.Sprintf("New submission for %q", a.Title),
		Body:        "A student submitted work for review.",
		Category:    notification.CategorySubmissionReceived,
		RelatedID:   sub.ID,
		RelatedType: notification.RelatedSubmission,
	}); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying teacher of submission %s: %v", sub.ID, err), err)
	}
	return sub, nil
}

// Grade scores a submission and notifies the student.
func (svc *Service) Grade(ctx context.Context, submissionID string, score int, feedback string) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if score < 0 || score > a.MaxScore {
		return Submission{}, core.NewValidationError(nil,
			core.FieldError{Field: "score", Error: fmt.Sprintf("must be between 0 and %d", a.MaxScore)})
	}

	sub.Score = &score
	sub.Feedback = feedback
	sub.Status = StatusGraded
	sub.UpdatedAt = svc.clock.Now()

	sub, err = svc.repo.UpsertSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	if _, _, err = svc.ledger.Create(ctx, notification.NewNotification{
		UserID:      sub.StudentID,
		Title:       fmt.Sprintf("Your submission for %q was graded", a.Title),
		Body:        fmt.Sprintf("Score: %d/%d", score, a.MaxScore),
		Category:    notification.CategoryGradePosted,
		RelatedID:   sub.ID,
		RelatedType: notification.RelatedSubmission,
	}); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying student of grade on %s: %v", sub.ID, err), err)
	}
	return sub, nil
}

func (svc *Service) Submissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.FilterSubmissions(ctx, assignmentID)
}
