package database

import (
	"time"

	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
)

// Row models mirror the domain types one to one; converters below keep the
// domain packages free of gorm tags.

type userRow struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Username     string    `gorm:"column:username;uniqueIndex;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Role         string    `gorm:"column:role;type:varchar(20);not null;index"`
	Subject      string    `gorm:"column:subject"`
	Course       string    `gorm:"column:course;index"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	PasswordHash []byte    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
	LastLogin    time.Time `gorm:"column:last_login"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) domain() user.User {
	return user.User(r)
}

func rowFromUser(u user.User) userRow {
	return userRow(u)
}

type registrationRow struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Username     string    `gorm:"column:username;not null"`
	Email        string    `gorm:"column:email;not null"`
	Role         string    `gorm:"column:role;type:varchar(20);not null"`
	Subject      string    `gorm:"column:subject"`
	Course       string    `gorm:"column:course"`
	PasswordHash []byte    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (registrationRow) TableName() string { return "pending_registrations" }

func (r registrationRow) domain() user.PendingRegistration {
	return user.PendingRegistration(r)
}

func rowFromRegistration(reg user.PendingRegistration) registrationRow {
	return registrationRow(reg)
}

type assignmentRow struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description"`
	Subject     string    `gorm:"column:subject;not null;index"`
	Course      string    `gorm:"column:course;index"`
	TeacherID   string    `gorm:"column:teacher_id;type:uuid;not null;index"`
	DueDate     time.Time `gorm:"column:due_date;not null;index"`
	PeriodStart time.Time `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null"`
	MaxScore    int       `gorm:"column:max_score;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (assignmentRow) TableName() string { return "assignments" }

func (r assignmentRow) domain() assignment.Assignment {
	return assignment.Assignment(r)
}

func rowFromAssignment(a assignment.Assignment) assignmentRow {
	return assignmentRow(a)
}

type submissionRow struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	AssignmentID string    `gorm:"column:assignment_id;type:uuid;not null;uniqueIndex:uniq_submission_per_student"`
	StudentID    string    `gorm:"column:student_id;type:uuid;not null;uniqueIndex:uniq_submission_per_student"`
	FilePath     string    `gorm:"column:file_path"`
	SubmittedAt  time.Time `gorm:"column:submitted_at"`
	Score        *int      `gorm:"column:score"`
	Feedback     string    `gorm:"column:feedback"`
	Status       string    `gorm:"column:status;type:varchar(20);not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (submissionRow) TableName() string { return "submissions" }

func (r submissionRow) domain() assignment.Submission {
	return assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		FilePath:     r.FilePath,
		SubmittedAt:  r.SubmittedAt,
		Score:        r.Score,
		Feedback:     r.Feedback,
		Status:       assignment.SubmissionStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func rowFromSubmission(s assignment.Submission) submissionRow {
	return submissionRow{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		StudentID:    s.StudentID,
		FilePath:     s.FilePath,
		SubmittedAt:  s.SubmittedAt,
		Score:        s.Score,
		Feedback:     s.Feedback,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type notificationRow struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID      string    `gorm:"column:user_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Body        string    `gorm:"column:body"`
	Category    string    `gorm:"column:category;type:varchar(30);not null"`
	RelatedID   string    `gorm:"column:related_id"`
	RelatedType string    `gorm:"column:related_type;type:varchar(20)"`
	Priority    string    `gorm:"column:priority;type:varchar(10);not null"`
	IsRead      bool      `gorm:"column:is_read;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (notificationRow) TableName() string { return "notifications" }

func (r notificationRow) domain() notification.Notification {
	return notification.Notification{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Body:        r.Body,
		Category:    notification.Category(r.Category),
		RelatedID:   r.RelatedID,
		RelatedType: r.RelatedType,
		Priority:    notification.Priority(r.Priority),
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt,
	}
}

func rowFromNotification(n notification.Notification) notificationRow {
	return notificationRow{
		ID:          n.ID,
		UserID:      n.UserID,
		Title:       n.Title,
		Body:        n.Body,
		Category:    string(n.Category),
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		Priority:    string(n.Priority),
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}
}

type preferencesRow struct {
	UserID            string `gorm:"column:user_id;type:uuid;primaryKey"`
	Email             bool   `gorm:"column:email;not null;default:true"`
	Browser           bool   `gorm:"column:browser;not null;default:true"`
	AssignmentAlerts  bool   `gorm:"column:assignment_alerts;not null;default:true"`
	GradeAlerts       bool   `gorm:"column:grade_alerts;not null;default:true"`
	DeadlineReminders bool   `gorm:"column:deadline_reminders;not null;default:true"`
	General           bool   `gorm:"column:general;not null;default:true"`
}

func (preferencesRow) TableName() string { return "notification_preferences" }

func (r preferencesRow) domain() notification.Preferences {
	return notification.Preferences(r)
}

func rowFromPreferences(p notification.Preferences) preferencesRow {
	return preferencesRow(p)
}

type auditRow struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID      string    `gorm:"column:user_id"`
	Action      string    `gorm:"column:action;not null;index"`
	Description string    `gorm:"column:description"`
	Meta        string    `gorm:"column:meta"` // JSON-encoded request metadata
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (auditRow) TableName() string { return "audit_logs" }
