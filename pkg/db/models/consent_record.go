package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/pkg/enums"
)

// ConsentRecord is append-only. The single permitted post-hoc update is
// re-pointing ContentID from a submission to the artwork it produced.
type ConsentRecord struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	AnonToken      *string                  `gorm:"column:anon_token"`
	ContentType    enums.ConsentContentType `gorm:"column:content_type;type:consent_content_type;not null"`
	ContentID      uuid.UUID                `gorm:"column:content_id;type:uuid;not null"`
	ConsentVersion string                   `gorm:"column:consent_version;not null"`
	IPAddress      string                   `gorm:"column:ip_address"`
	TextHash       string                   `gorm:"column:text_hash;not null"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// HasExactlyOneSubject reports whether the record is keyed by exactly one of
// an authenticated user id or an anonymous token.
func (c *ConsentRecord) HasExactlyOneSubject() bool {
	hasUser := c.UserID != nil && *c.UserID != uuid.Nil
	hasAnon := c.AnonToken != nil && *c.AnonToken != ""
	return hasUser != hasAnon
}
