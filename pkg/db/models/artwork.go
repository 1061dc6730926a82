package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// Artwork is the durable public record. It is created only by the moderation
// engine approving a new-artwork submission and mutated only by approval of
// edit/addition submissions.
type Artwork struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Location    types.GeographyPoint `gorm:"column:location;not null"`
	Title       string               `gorm:"column:title;not null"`
	Description string               `gorm:"column:description"`
	CreatedBy   string               `gorm:"column:created_by;not null"`
	Tags        dbtypes.TagMap       `gorm:"column:tags;type:jsonb;not null"`
	Photos      dbtypes.StringArray  `gorm:"column:photos;type:text[];not null"`
	Status      enums.ArtworkStatus  `gorm:"column:status;type:artwork_status;not null;default:'pending'"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
