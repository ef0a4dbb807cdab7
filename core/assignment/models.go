package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shuleapp/shule/core"
)

type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"
)

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	// Course is denormalized from the owning teacher at creation time;
	// read paths fall back to the teacher's course when empty.
	Course      string    `json:"course"`
	TeacherID   string    `json:"teacher_id"`
	DueDate     time.Time `json:"due_date"`     // UTC
	PeriodStart time.Time `json:"period_start"` // UTC
	PeriodEnd   time.Time `json:"period_end"`   // UTC
	MaxScore    int       `json:"max_score"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// PeriodStatus classifies the submission window at `now`.
func (a Assignment) PeriodStatus(now time.Time) core.PeriodStatus {
	return core.ClassifyPeriod(now, a.PeriodStart, a.PeriodEnd)
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Subject     string    `json:"subject" validate:"required"`
	Course      string    `json:"course"`
	TeacherID   string    `json:"teacher_id" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
	MaxScore    int       `json:"max_score" validate:"required,min=1"`
}

// Validate cleans string fields and enforces the window ordering invariant:
// period_start < period_end < due_date.
func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Subject = core.CleanString(na.Subject)
	na.Course = core.CleanString(na.Course)

	if err := validate.Struct(na); err != nil {
		return err
	}

	var flds []core.FieldError
	if !na.PeriodStart.Before(na.PeriodEnd) {
		flds = append(flds, core.FieldError{Field: "period_end", Error: "must be after period_start"})
	}
	if !na.PeriodEnd.Before(na.DueDate) {
		flds = append(flds, core.FieldError{Field: "due_date", Error: "must be after period_end"})
	}
	if flds != nil {
		return core.NewValidationError(ErrInvalidPeriod, flds...)
	}
	return nil
}

type Submission struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignment_id"`
	StudentID    string           `json:"student_id"`
	FilePath     string           `json:"file_path"`
	SubmittedAt  time.Time        `json:"submitted_at"` // UTC
	Score        *int             `json:"score,omitempty"`
	Feedback     string           `json:"feedback,omitempty"`
	Status       SubmissionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at"` // UTC
}

// NewSubmission contains information needed to submit (or resubmit) work.
type NewSubmission struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required"`
	FilePath     string `json:"file_path" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.FilePath = core.CleanString(ns.FilePath)
	return validate.Struct(ns)
}

// Filter applies AND on its non-zero fields.
// Subject matches case-insensitively.
type Filter struct {
	TeacherID string
	Subject   string
	IsActive  *bool
	DueAfter  time.Time
	DueBefore time.Time
}
