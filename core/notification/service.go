package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/shuleapp/shule/core"
)

var (
	// errors
	ErrNotFound        = errors.New("notification not found")
	ErrPrefsNotFound   = errors.New("notification preferences not found")
	ErrInvalidCategory = errors.New("invalid notification category")
)

type (
	// Filter narrows notification scans. UserID is required.
	Filter struct {
		UserID     string
		Limit      int
		UnreadOnly bool
		SinceID    string
	}

	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// CreateNotificationIfAbsent relies on the store's uniqueness constraint
		// on (user, category, related) and reports whether a row was created.
		// Concurrent calls for the same key never produce duplicates.
		CreateNotificationIfAbsent(ctx context.Context, n Notification) (Notification, bool, error)
		// FilterNotifications returns notifications ordered newest first.
		FilterNotifications(ctx context.Context, filter Filter) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkNotificationRead(ctx context.Context, id, userID string) (bool, error)
		MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
		DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)
		DeleteNotificationsByRelated(ctx context.Context, relatedType, relatedID string) error
		GetPreferences(ctx context.Context, userID string) (Preferences, error)
		UpsertPreferences(ctx context.Context, prefs Preferences) (Preferences, error)
	}

	// Recipient is a resolved notification target.
	Recipient struct {
		Name  string
		Email string
	}

	// Directory resolves user IDs to email recipients.
	Directory interface {
		GetRecipient(ctx context.Context, userID string) (Recipient, error)
	}

	Service struct {
		repo    Repository
		dir     Directory
		mailSvc core.EmailService
		clock   core.Clock
		logger  core.Logger
	}
)

func NewService(repo Repository, dir Directory, mailSvc core.EmailService, clock core.Clock, logger core.Logger) *Service {
	return &Service{repo: repo, dir: dir, mailSvc: mailSvc, clock: clock, logger: logger}
}

func (svc *Service) build(ctx context.Context, nn NewNotification) (Notification, Preferences, bool, error) {
	if !nn.Category.Valid() {
		return Notification{}, Preferences{}, false, core.NewValidationError(ErrInvalidCategory,
			core.FieldError{Field: "category", Error: ErrInvalidCategory.Error()})
	}

	prefs, err := svc.GetPreferences(ctx, nn.UserID)
	if err != nil {
		return Notification{}, Preferences{}, false, err
	}
	if !prefs.Allows(nn.Category) {
		return Notification{}, prefs, false, nil
	}

	priority := nn.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	n := Notification{
		UserID:      nn.UserID,
		Title:       nn.Title,
		Body:        nn.Body,
		Category:    nn.Category,
		RelatedID:   nn.RelatedID,
		RelatedType: nn.RelatedType,
		Priority:    priority,
		CreatedAt:   svc.clock.Now(),
	}
	return n, prefs, true, nil
}

// Create records a notification unconditionally. Deduplication is the
// caller's concern; use CreateIfAbsent for fan-out paths.
// The second return reports whether a notification was produced (the user's
// preference toggles may suppress it).
func (svc *Service) Create(ctx context.Context, nn NewNotification) (Notification, bool, error) {
	n, prefs, ok, err := svc.build(ctx, nn)
	if err != nil || !ok {
		return Notification{}, false, err
	}
	n, err = svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, false, err
	}
	svc.emailOut(ctx, n, prefs)
	return n, true, nil
}

// CreateIfAbsent records a notification unless one with the same
// (user, category, related) key already exists. Safe under concurrency:
// the store constraint, not the existence check, is the guard.
func (svc *Service) CreateIfAbsent(ctx context.Context, nn NewNotification) (bool, error) {
	n, prefs, ok, err := svc.build(ctx, nn)
	if err != nil || !ok {
		return false, err
	}
	n, created, err := svc.repo.CreateNotificationIfAbsent(ctx, n)
	if err != nil {
		return false, err
	}
	if created {
		svc.emailOut(ctx, n, prefs)
	}
	return created, nil
}

// emailOut mirrors a notification to email when the user's email toggle is on.
// Failures are logged, never propagated.
func (svc *Service) emailOut(ctx context.Context, n Notification, prefs Preferences) {
	if svc.mailSvc == nil || svc.dir == nil {
		return
	}
	if !prefs.Email {
		return
	}
	rcpt, err := svc.dir.GetRecipient(ctx, n.UserID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("resolving notification recipient %s: %v", n.UserID, err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
		Subject: n.Title,
		BodyStr: n.Body,
	})
}

// ListForUser returns the user's notifications, newest first.
func (svc *Service) ListForUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return svc.repo.FilterNotifications(ctx, Filter{
		UserID:     userID,
		Limit:      opts.Limit,
		UnreadOnly: opts.UnreadOnly,
		SinceID:    opts.SinceID,
	})
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.UnreadCount(ctx, userID)
}

// MarkRead flags a notification as read. Returns false when the notification
// does not belong to the user; marking an already-read notification is a no-op
// success.
func (svc *Service) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	return svc.repo.MarkNotificationRead(ctx, id, userID)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}

// GetPreferences returns the user's stored toggles, or all-enabled defaults
// when no row exists.
func (svc *Service) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	prefs, err := svc.repo.GetPreferences(ctx, userID)
	if err != nil {
		if err == ErrPrefsNotFound {
			return DefaultPreferences(userID), nil
		}
		return Preferences{}, err
	}
	return prefs, nil
}

func (svc *Service) UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error) {
	return svc.repo.UpsertPreferences(ctx, prefs)
}

// Cleanup deletes notifications older than maxAgeDays and returns the count removed.
func (svc *Service) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	cutoff := svc.clock.Now().AddDate(0, 0, -maxAgeDays)
	return svc.repo.DeleteNotificationsBefore(ctx, cutoff)
}

// DeleteRelated removes notifications referencing a deleted entity.
func (svc *Service) DeleteRelated(ctx context.Context, relatedType, relatedID string) error {
	return svc.repo.DeleteNotificationsByRelated(ctx, relatedType, relatedID)
}
