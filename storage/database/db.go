package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shuleapp/shule/core"
)

func Open(conf *core.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if conf.Debug {
		logLevel = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(conf.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "getting sql.DB")
	}
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = sqlDB.Ping(); err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate applies the schema. The partial unique indexes are the authoritative
// guards for notification dedup and teacher-subject exclusivity; AutoMigrate
// cannot express them, so they are created with raw SQL.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userRow{},
		&registrationRow{},
		&assignmentRow{},
		&submissionRow{},
		&notificationRow{},
		&preferencesRow{},
		&auditRow{},
	); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_notification_dedup
			ON notifications (user_id, category, related_id)
			WHERE related_id <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_teacher_subject
			ON users (lower(subject))
			WHERE role = 'teacher' AND is_active AND subject <> ''`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "creating partial unique indexes")
		}
	}
	return nil
}
