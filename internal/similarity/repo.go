package similarity

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// Repository reads the approved-artwork index for candidate lookup.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an artwork candidate repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindNearby returns approved artworks within radiusMeters of the location,
// nearest first. Uses the PostGIS geography index.
func (r *Repository) FindNearby(ctx context.Context, location types.GeographyPoint, radiusMeters float64, limit int) ([]models.Artwork, error) {
	if limit <= 0 {
		limit = 25
	}
	// the point literal is built from parsed floats, never raw client input
	point := fmt.Sprintf("SRID=4326;POINT(%f %f)", location.Lng, location.Lat)

	var rows []models.Artwork
	err := r.db.WithContext(ctx).
		Model(&models.Artwork{}).
		Where("status = ?", enums.ArtworkStatusApproved).
		Where("ST_DWithin(location, ST_GeogFromText(?), ?)", point, radiusMeters).
		Order(fmt.Sprintf("location <-> ST_GeogFromText('%s')", point)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
