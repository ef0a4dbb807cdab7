package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shuleapp/shule/core"
)

// auditLogger persists audit entries. Per the core.AuditLogger contract it is
// fire-and-forget: write failures are logged and swallowed.
type auditLogger struct {
	db     *gorm.DB
	logger core.Logger
}

var _ core.AuditLogger = (*auditLogger)(nil)

func NewAuditLogger(db *gorm.DB, logger core.Logger) *auditLogger {
	return &auditLogger{db: db, logger: logger}
}

func (al *auditLogger) Log(ctx context.Context, userID, action, description string, meta map[string]string) {
	var metaJSON string
	if meta != nil {
		if data, err := json.Marshal(meta); err == nil {
			metaJSON = string(data)
		}
	}
	row := auditRow{
		ID:          uuid.New().String(),
		UserID:      userID,
		Action:      action,
		Description: description,
		Meta:        metaJSON,
		CreatedAt:   time.Now().UTC(),
	}
	if err := al.db.WithContext(ctx).Create(&row).Error; err != nil {
		al.logger.Warn(fmt.Sprintf("audit write failed (%s): %v", action, err), err)
	}
}
