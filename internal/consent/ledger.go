package consent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
)

// Ledger appends consent records. Records are never deleted and, apart from
// the submission-to-artwork repoint on approval, never updated.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a ledger on the provided handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger bound to the transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// HashConsentText fingerprints the consent text shown to the submitter so
// the exact wording they agreed to stays provable.
func HashConsentText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Record appends a consent record after checking it carries exactly one
// subject and a non-empty version and text hash.
func (l *Ledger) Record(ctx context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error) {
	if !record.HasExactlyOneSubject() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"consent record requires exactly one of user id or anonymous token")
	}
	if !record.ContentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid consent content type")
	}
	if record.ContentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consent record requires a content id")
	}
	if record.ConsentVersion == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consent version is required")
	}
	if record.TextHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consent text hash is required")
	}

	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Repoint moves the consent records of an approved submission onto the
// artwork it produced. This is the only permitted post-hoc mutation.
func (l *Ledger) Repoint(ctx context.Context, submissionID, artworkID uuid.UUID) error {
	return l.db.WithContext(ctx).
		Model(&models.ConsentRecord{}).
		Where("content_type = ? AND content_id = ?", enums.ConsentContentSubmission, submissionID).
		Updates(map[string]any{
			"content_type": enums.ConsentContentArtwork,
			"content_id":   artworkID,
		}).Error
}

// ListForContent returns the records tied to one content id, oldest first.
func (l *Ledger) ListForContent(ctx context.Context, contentType enums.ConsentContentType, contentID uuid.UUID) ([]models.ConsentRecord, error) {
	var records []models.ConsentRecord
	err := l.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
