package submissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
)

// Repository exposes submission persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a submission repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new submission row. A violation of the pending-edit
// partial unique index surfaces as a conflict so intake can tell the
// submitter an edit is already queued for that artwork.
func (r *Repository) Create(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		if db.IsUniqueViolation(err, models.PendingEditUniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				"a pending edit for this artwork already exists for this submitter")
		}
		return nil, err
	}
	return submission, nil
}

// FindByID loads one submission.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission not found").
			WithDetails(map[string]string{"submission_id": id.String()})
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// Update persists the full submission row.
func (r *Repository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// List returns submissions matching the query using cursor pagination,
// newest first.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if opts.status != "" {
		query = query.Where("status = ?", opts.status)
	}
	if opts.submitterKey != "" {
		query = query.Where("submitter_key = ?", opts.submitterKey)
	}
	if opts.submissionType != "" {
		query = query.Where("submission_type = ?", opts.submissionType)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Submission
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPending returns the pending queue for moderators, newest first.
// submissionType narrows the queue when non-empty.
func (r *Repository) ListPending(ctx context.Context, submissionType enums.SubmissionType, limit int, cursor *pkgpagination.Cursor) ([]models.Submission, error) {
	return r.List(ctx, listQuery{
		status:         enums.SubmissionStatusPending,
		submissionType: submissionType,
		limit:          limit,
		cursor:         cursor,
	})
}

// CountByStatus reports how many submissions sit in the given status.
func (r *Repository) CountByStatus(ctx context.Context, status enums.SubmissionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
