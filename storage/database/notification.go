package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuleapp/shule/core/notification"
)

type notificationRepository struct {
	db *gorm.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *gorm.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := rowFromNotification(n)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.domain(), nil
}

func (repo *notificationRepository) CreateNotificationIfAbsent(ctx context.Context, n notification.Notification) (notification.Notification, bool, error) {
	n.ID = uuid.New().String()
	row := rowFromNotification(n)

	// ON CONFLICT DO NOTHING against the partial unique index on
	// (user_id, category, related_id); RowsAffected == 0 means a duplicate.
	res := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return notification.Notification{}, false, errors.Wrap(res.Error, "inserting notification")
	}
	return row.domain(), res.RowsAffected > 0, nil
}

func (repo *notificationRepository) FilterNotifications(ctx context.Context, filter notification.Filter) ([]notification.Notification, error) {
	q := repo.db.WithContext(ctx).Model(&notificationRow{}).
		Where("user_id = ?", filter.UserID)

	if filter.UnreadOnly {
		q = q.Where("NOT is_read")
	}
	if filter.SinceID != "" {
		var since notificationRow
		err := repo.db.WithContext(ctx).First(&since, "id = ?", filter.SinceID).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.Wrap(err, "finding since notification")
			}
		} else {
			q = q.Where("created_at > ?", since.CreatedAt)
		}
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []notificationRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	out := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (repo *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&notificationRow{}).
		Where("user_id = ? AND NOT is_read", userID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return int(count), nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var row notificationRow
	err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "finding notification")
	}
	if row.UserID != userID {
		return false, nil
	}
	if row.IsRead { // no-op success
		return true, nil
	}
	err = repo.db.WithContext(ctx).Model(&notificationRow{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return false, errors.Wrap(err, "marking notification read")
	}
	return true, nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res := repo.db.WithContext(ctx).Model(&notificationRow{}).
		Where("user_id = ? AND NOT is_read", userID).
		Update("is_read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "marking all notifications read")
	}
	return int(res.RowsAffected), nil
}

func (repo *notificationRepository) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res := repo.db.WithContext(ctx).
		Delete(&notificationRow{}, "created_at < ?", cutoff)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting stale notifications")
	}
	return int(res.RowsAffected), nil
}

func (repo *notificationRepository) DeleteNotificationsByRelated(ctx context.Context, relatedType, relatedID string) error {
	err := repo.db.WithContext(ctx).
		Delete(&notificationRow{}, "related_type = ? AND related_id = ?", relatedType, relatedID).Error
	if err != nil {
		return errors.Wrap(err, "deleting related notifications")
	}
	return nil
}

func (repo *notificationRepository) GetPreferences(ctx context.Context, userID string) (notification.Preferences, error) {
	var row preferencesRow
	err := repo.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notification.Preferences{}, notification.ErrPrefsNotFound
		}
		return notification.Preferences{}, errors.Wrap(err, "finding preferences")
	}
	return row.domain(), nil
}

func (repo *notificationRepository) UpsertPreferences(ctx context.Context, prefs notification.Preferences) (notification.Preferences, error) {
	row := rowFromPreferences(prefs)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return notification.Preferences{}, errors.Wrap(err, "upserting preferences")
	}
	return row.domain(), nil
}
