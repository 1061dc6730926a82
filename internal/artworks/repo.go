package artworks

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
)

// Repository persists artworks, artists, and their role links. Construct it
// on a transaction handle when the caller needs the writes to commit
// together.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an artwork repository on the provided handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new artwork row.
func (r *Repository) Create(ctx context.Context, artwork *models.Artwork) (*models.Artwork, error) {
	if err := r.db.WithContext(ctx).Create(artwork).Error; err != nil {
		return nil, err
	}
	return artwork, nil
}

// FindByID loads one artwork.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Artwork, error) {
	var artwork models.Artwork
	err := r.db.WithContext(ctx).First(&artwork, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artwork not found").
			WithDetails(map[string]string{"artwork_id": id.String()})
	}
	if err != nil {
		return nil, err
	}
	return &artwork, nil
}

// Update persists the full artwork row.
func (r *Repository) Update(ctx context.Context, artwork *models.Artwork) error {
	return r.db.WithContext(ctx).Save(artwork).Error
}

// FindOrCreateArtistByName resolves an artist case-insensitively, creating
// one when absent.
func (r *Repository) FindOrCreateArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist name is required")
	}

	var artist models.Artist
	err := r.db.WithContext(ctx).First(&artist, "lower(name) = lower(?)", trimmed).Error
	if err == nil {
		return &artist, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	artist = models.Artist{ID: uuid.New(), Name: trimmed}
	if err := r.db.WithContext(ctx).Create(&artist).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

// UpdateArtist persists the full artist row.
func (r *Repository) UpdateArtist(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).Save(artist).Error
}

// CreateArtist inserts an artist row.
func (r *Repository) CreateArtist(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	if err := r.db.WithContext(ctx).Create(artist).Error; err != nil {
		return nil, err
	}
	return artist, nil
}

// LinkArtist attaches an artist to an artwork with the given role. Linking
// the same pair twice is a no-op.
func (r *Repository) LinkArtist(ctx context.Context, artworkID, artistID uuid.UUID, role enums.ArtistRole) error {
	link := models.ArtworkArtist{ID: uuid.New(), ArtworkID: artworkID, ArtistID: artistID, Role: role}
	err := r.db.WithContext(ctx).Create(&link).Error
	if err != nil && strings.Contains(err.Error(), "artwork_artists_unique") {
		return nil
	}
	return err
}
