package notification

import (
	"time"

	"github.com/shuleapp/shule/core"
)

// Category is a closed set; values outside it are rejected at the boundary.
type Category string

const (
	CategoryNewAssignment      Category = "new_assignment"
	CategorySubmissionReceived Category = "submission_received"
	CategoryGradePosted        Category = "grade_posted"
	CategoryDeadlineReminder   Category = "deadline_reminder"
	CategorySystem             Category = "system"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryNewAssignment, CategorySubmissionReceived, CategoryGradePosted,
		CategoryDeadlineReminder, CategorySystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Related entity types.
const (
	RelatedAssignment = "assignment"
	RelatedSubmission = "submission"
)

type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Category    Category  `json:"category"`
	RelatedID   string    `json:"related_id,omitempty"`
	RelatedType string    `json:"related_type,omitempty"`
	Priority    Priority  `json:"priority"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// TimeAgo renders the notification age for display.
func (n Notification) TimeAgo(now time.Time) string {
	return core.TimeAgo(now, n.CreatedAt)
}

// NewNotification contains information needed to create a Notification.
type NewNotification struct {
	UserID      string   `json:"user_id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Body        string   `json:"body"`
	Category    Category `json:"category" validate:"required"`
	RelatedID   string   `json:"related_id"`
	RelatedType string   `json:"related_type"`
	Priority    Priority `json:"priority"`
}

// Preferences holds a user's delivery toggles.
// A user without a stored row gets all-enabled defaults.
type Preferences struct {
	UserID            string `json:"user_id"`
	Email             bool   `json:"email"`
	Browser           bool   `json:"browser"`
	AssignmentAlerts  bool   `json:"assignment_alerts"`
	GradeAlerts       bool   `json:"grade_alerts"`
	DeadlineReminders bool   `json:"deadline_reminders"`
	General           bool   `json:"general"`
}

func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:            userID,
		Email:             true,
		Browser:           true,
		AssignmentAlerts:  true,
		GradeAlerts:       true,
		DeadlineReminders: true,
		General:           true,
	}
}

// Allows reports whether the toggle governing `c` is on.
func (p Preferences) Allows(c Category) bool {
	switch c {
	case CategoryNewAssignment, CategorySubmissionReceived:
		return p.AssignmentAlerts
	case CategoryGradePosted:
		return p.GradeAlerts
	case CategoryDeadlineReminder:
		return p.DeadlineReminders
	default:
		return p.General
	}
}

// ListOptions narrows ListForUser results. SinceID filters to notifications
// created after the given one, for incremental polling.
type ListOptions struct {
	Limit      int    `query:"limit"`
	UnreadOnly bool   `query:"unread"`
	SinceID    string `query:"since_id"`
}
