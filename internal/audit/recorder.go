package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db/models"
	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
)

// Recorder appends moderation decisions to the write-once audit trail.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a recorder on the provided handle.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// WithTx returns a recorder bound to the transaction.
func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	return &Recorder{db: tx}
}

// Record appends one audit entry. Entries are never updated or deleted.
func (r *Recorder) Record(ctx context.Context, moderatorID uuid.UUID, decision enums.Decision, targetID uuid.UUID, reason string, metadata dbtypes.TagMap) (*models.AuditLogEntry, error) {
	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit entry requires a moderator id")
	}
	if targetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit entry requires a target id")
	}
	if !decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audit decision")
	}
	if metadata == nil {
		metadata = dbtypes.TagMap{}
	}

	entry := &models.AuditLogEntry{
		ModeratorID: moderatorID,
		Decision:    decision,
		TargetID:    targetID,
		Reason:      reason,
		Metadata:    metadata,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListForTarget returns the audit entries for one target, newest first.
func (r *Recorder) ListForTarget(ctx context.Context, targetID uuid.UUID) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
