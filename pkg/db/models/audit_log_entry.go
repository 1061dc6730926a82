package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
)

// AuditLogEntry is the write-once trail for moderation decisions.
type AuditLogEntry struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ModeratorID uuid.UUID      `gorm:"column:moderator_id;type:uuid;not null"`
	Decision    enums.Decision `gorm:"column:decision;type:moderation_decision;not null"`
	TargetID    uuid.UUID      `gorm:"column:target_id;type:uuid;not null"`
	Reason      string         `gorm:"column:reason"`
	Metadata    dbtypes.TagMap `gorm:"column:metadata;type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}
