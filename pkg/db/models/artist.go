package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
)

// Artist is the lighter-weight companion entity to Artwork.
type Artist struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	Tags        dbtypes.TagMap `gorm:"column:tags;type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// ArtworkArtist links artists to artworks with a role qualifier.
type ArtworkArtist struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ArtworkID uuid.UUID        `gorm:"column:artwork_id;type:uuid;not null"`
	ArtistID  uuid.UUID        `gorm:"column:artist_id;type:uuid;not null"`
	Role      enums.ArtistRole `gorm:"column:role;type:artist_role;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}
