package dummydb

import (
	"context"
	"sync"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/notification"
	"github.com/shuleapp/shule/core/user"
)

// DB is an in-memory store mirroring the real store's uniqueness behavior,
// used by tests and local development.
type DB struct {
	user         *userTable
	assignment   *assignmentTable
	notification *notificationTable
}

type (
	userTable struct {
		sync.RWMutex
		users         map[string]*user.User
		registrations map[string]*user.PendingRegistration
	}

	assignmentTable struct {
		sync.RWMutex
		assignments map[string]*assignment.Assignment
		submissions map[string]*assignment.Submission
	}

	notificationTable struct {
		sync.RWMutex
		notifications map[string]*notification.Notification
		// dedup holds user|category|related keys, standing in for the real
		// store's partial unique index.
		dedup map[string]struct{}
		prefs map[string]*notification.Preferences
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			users:         make(map[string]*user.User),
			registrations: make(map[string]*user.PendingRegistration),
		},
		assignment: &assignmentTable{
			assignments: make(map[string]*assignment.Assignment),
			submissions: make(map[string]*assignment.Submission),
		},
		notification: &notificationTable{
			notifications: make(map[string]*notification.Notification),
			dedup:         make(map[string]struct{}),
			prefs:         make(map[string]*notification.Preferences),
		},
	}
	return db, nil
}

// AuditLogger is an in-memory core.AuditLogger capturing entries for assertions.
type AuditLogger struct {
	mu      sync.Mutex
	Entries []AuditEntry
}

type AuditEntry struct {
	UserID      string
	Action      string
	Description string
	Meta        map[string]string
}

var _ core.AuditLogger = (*AuditLogger)(nil)

func NewAuditLogger() *AuditLogger { return &AuditLogger{} }

func (al *AuditLogger) Log(_ context.Context, userID, action, description string, meta map[string]string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.Entries = append(al.Entries, AuditEntry{UserID: userID, Action: action, Description: description, Meta: meta})
}
