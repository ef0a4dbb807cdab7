package dummydb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shuleapp/shule/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func dedupKey(n notification.Notification) string {
	return fmt.Sprintf("%s|%s|%s", n.UserID, n.Category, n.RelatedID)
}

func (repo *notificationRepository) insert(n notification.Notification) notification.Notification {
	n.ID = uuid.New().String()
	repo.db.notifications[n.ID] = &n
	return n
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.insert(n), nil
}

func (repo *notificationRepository) CreateNotificationIfAbsent(_ context.Context, n notification.Notification) (notification.Notification, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if n.RelatedID != "" {
		key := dedupKey(n)
		if _, dup := repo.db.dedup[key]; dup {
			return notification.Notification{}, false, nil
		}
		repo.db.dedup[key] = struct{}{}
	}
	return repo.insert(n), true, nil
}

func (repo *notificationRepository) FilterNotifications(_ context.Context, filter notification.Filter) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var since time.Time
	if filter.SinceID != "" {
		if s, ok := repo.db.notifications[filter.SinceID]; ok {
			since = s.CreatedAt
		}
	}

	var out []notification.Notification
	for _, n := range repo.db.notifications {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if !since.IsZero() && !n.CreatedAt.After(since) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (repo *notificationRepository) UnreadCount(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkNotificationRead(_ context.Context, id, userID string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) DeleteNotificationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for id, n := range repo.db.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(repo.db.notifications, id)
			delete(repo.db.dedup, dedupKey(*n))
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) DeleteNotificationsByRelated(_ context.Context, relatedType, relatedID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, n := range repo.db.notifications {
		if n.RelatedType == relatedType && n.RelatedID == relatedID {
			delete(repo.db.notifications, id)
			delete(repo.db.dedup, dedupKey(*n))
		}
	}
	return nil
}

func (repo *notificationRepository) GetPreferences(_ context.Context, userID string) (notification.Preferences, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.prefs[userID]; ok {
		return *p, nil
	}
	return notification.Preferences{}, notification.ErrPrefsNotFound
}

func (repo *notificationRepository) UpsertPreferences(_ context.Context, prefs notification.Preferences) (notification.Preferences, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.prefs[prefs.UserID] = &prefs
	return prefs, nil
}
