package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/internal/artworks"
	"github.com/openartmap/openartmap-backend/internal/audit"
	"github.com/openartmap/openartmap-backend/internal/consent"
	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/internal/similarity"
	"github.com/openartmap/openartmap-backend/internal/submissions"
	"github.com/openartmap/openartmap-backend/internal/validation"
	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	"github.com/openartmap/openartmap-backend/pkg/metrics"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type photoLifecycle interface {
	StageAll(ctx context.Context, submissionID uuid.UUID, refs []types.PhotoRef) photos.StageResult
	Promote(ctx context.Context, artworkID uuid.UUID, stagedRefs []string, existing dbtypes.StringArray) photos.PromoteResult
	Purge(ctx context.Context, stagedRefs []string) error
}

// Engine advances submissions through the moderation state machine. Both
// transitions out of pending are terminal; a reviewed submission is never
// mutated again.
type Engine interface {
	Approve(ctx context.Context, moderatorID, submissionID uuid.UUID, input ApproveInput) (*ReviewOutcome, error)
	Reject(ctx context.Context, moderatorID, submissionID uuid.UUID, reason string, cleanupPhotos bool) (*ReviewOutcome, error)
	BatchReview(ctx context.Context, moderatorID uuid.UUID, items []BatchItem) (*BatchResult, error)
	ListPending(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, submissionID uuid.UUID) (*ReviewDetail, error)
}

type engine struct {
	tx       txRunner
	subs     *submissions.Repository
	artworks *artworks.Repository
	ledger   *consent.Ledger
	auditor  *audit.Recorder
	photoMgr photoLifecycle
	cfg      config.ModerationConfig
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewEngine builds the moderation engine.
func NewEngine(tx txRunner, subs *submissions.Repository, artworkRepo *artworks.Repository, ledger *consent.Ledger, auditor *audit.Recorder, photoMgr photoLifecycle, cfg config.ModerationConfig, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (Engine, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if subs == nil {
		return nil, fmt.Errorf("submission repository required")
	}
	if artworkRepo == nil {
		return nil, fmt.Errorf("artwork repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("consent ledger required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if photoMgr == nil {
		return nil, fmt.Errorf("photo manager required")
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("max batch size must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &engine{
		tx:       tx,
		subs:     subs,
		artworks: artworkRepo,
		ledger:   ledger,
		auditor:  auditor,
		photoMgr: photoMgr,
		cfg:      cfg,
		logg:     logg,
		pipeline: pipeline,
	}, nil
}

func (e *engine) Approve(ctx context.Context, moderatorID, submissionID uuid.UUID, input ApproveInput) (*ReviewOutcome, error) {
	started := time.Now()
	outcome, err := e.approve(ctx, moderatorID, submissionID, input)
	if err != nil {
		return nil, err
	}

	e.pipeline.IncDecision(enums.DecisionApproved.String(), outcome.Submission.SubmissionType.String())
	e.pipeline.ObserveReviewDuration(enums.DecisionApproved.String(), time.Since(started))
	logCtx := e.logg.WithSubmissionID(ctx, submissionID.String())
	e.logg.Info(e.logg.WithModeratorID(logCtx, moderatorID.String()), "submission approved")
	return outcome, nil
}

func (e *engine) approve(ctx context.Context, moderatorID, submissionID uuid.UUID, input ApproveInput) (*ReviewOutcome, error) {
	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderator identity missing")
	}

	submission, err := e.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := requirePending(submission); err != nil {
		return nil, err
	}

	creating := submission.SubmissionType.CreatesArtwork()
	if !creating && (input.LinkArtworkID != nil || !input.Overrides.empty()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"link and field overrides only apply to artwork-creating submissions").
			WithDetails(map[string]string{"submission_type": submission.SubmissionType.String()})
	}
	if input.LinkArtworkID != nil {
		return e.approveLinkExisting(ctx, moderatorID, submission, input)
	}

	switch submission.SubmissionType {
	case enums.SubmissionTypeNewArtwork, enums.SubmissionTypeBulkArtwork:
		return e.approveNewArtwork(ctx, moderatorID, submission, input)
	case enums.SubmissionTypeEditArtwork:
		return e.approveEdit(ctx, moderatorID, submission, input.Notes)
	case enums.SubmissionTypeAdditionalInfo:
		return e.approveAdditionalInfo(ctx, moderatorID, submission, input.Notes)
	case enums.SubmissionTypeBulkArtist:
		return e.approveArtist(ctx, moderatorID, submission, input.Notes)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported submission type").
			WithDetails(map[string]string{"submission_type": submission.SubmissionType.String()})
	}
}

// artworkIDNamespace pins the derivation of artwork ids from submission ids.
var artworkIDNamespace = uuid.MustParse("b3a6e1cb-07c5-4d84-9f28-421a6c30d1af")

// artworkIDFor derives the artwork id from the submission, so a retried
// approval promotes photos to the same permanent destination instead of
// scattering copies under a fresh id per attempt.
func artworkIDFor(submissionID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(artworkIDNamespace, submissionID[:])
}

// approveNewArtwork creates the artwork. Photos are copied to their permanent
// home before the status flips, so a crash mid-approval leaves a retryable
// pending submission rather than an approved one with unmoved photos. The
// staged copies are purged only after the transaction commits; a retried
// promotion deduplicates by set union.
func (e *engine) approveNewArtwork(ctx context.Context, moderatorID uuid.UUID, submission *models.Submission, input ApproveInput) (*ReviewOutcome, error) {
	payload, err := applyOverrides(submission.Payload, input.Overrides)
	if err != nil {
		return nil, err
	}
	if payload.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "submission carries no location")
	}
	notes := input.Notes

	artworkID := artworkIDFor(submission.ID)
	stage := e.photoMgr.StageAll(ctx, submission.ID, payload.Photos)
	promo := e.photoMgr.Promote(ctx, artworkID, stage.Staged, nil)
	failures := append(stage.Failures, promo.Failures...)

	artwork := &models.Artwork{
		ID:          artworkID,
		Location:    *payload.Location,
		Title:       payload.Title,
		Description: payload.Description,
		CreatedBy:   submission.SubmitterKey,
		Tags:        payloadTags(payload),
		Photos:      promo.Photos,
		Status:      enums.ArtworkStatusApproved,
	}

	var artistID *uuid.UUID
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		if _, err := e.artworks.WithTx(tx).Create(ctx, artwork); err != nil {
			return err
		}
		if payload.ArtistName != "" {
			artist, err := e.artworks.WithTx(tx).FindOrCreateArtistByName(ctx, payload.ArtistName)
			if err != nil {
				return err
			}
			if err := e.artworks.WithTx(tx).LinkArtist(ctx, artwork.ID, artist.ID, enums.ArtistRolePrimary); err != nil {
				return err
			}
			artistID = &artist.ID
		}
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusApproved, notes); err != nil {
			return err
		}
		if err := e.ledger.WithTx(tx).Repoint(ctx, submission.ID, artwork.ID); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionApproved, submission, notes, map[string]any{
			"action":          "create_artwork",
			"artwork_id":      artwork.ID.String(),
			"photos_promoted": promo.Promoted,
			"photos_failed":   len(failures),
		})
	})
	if err != nil {
		return nil, err
	}
	e.cleanupStaged(ctx, submission.ID, promo.Moved)

	return &ReviewOutcome{
		Submission:    submission,
		ArtworkID:     &artwork.ID,
		ArtistID:      artistID,
		PhotoFailures: failures,
	}, nil
}

// approveLinkExisting resolves a would-be new artwork into an existing one:
// the moderator judged the submission a duplicate, so its photos and tags
// merge into the linked artwork and no new record is minted. Consent follows
// the content to the artwork it ended up on.
func (e *engine) approveLinkExisting(ctx context.Context, moderatorID uuid.UUID, submission *models.Submission, input ApproveInput) (*ReviewOutcome, error) {
	payload, err := applyOverrides(submission.Payload, input.Overrides)
	if err != nil {
		return nil, err
	}

	artwork, err := e.artworks.FindByID(ctx, *input.LinkArtworkID)
	if err != nil {
		return nil, err
	}

	stage := e.photoMgr.StageAll(ctx, submission.ID, payload.Photos)
	promo := e.photoMgr.Promote(ctx, artwork.ID, stage.Staged, artwork.Photos)
	failures := append(stage.Failures, promo.Failures...)

	artwork.Photos = promo.Photos
	artwork.Tags = artwork.Tags.Merge(payloadTags(payload))

	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		if err := e.artworks.WithTx(tx).Update(ctx, artwork); err != nil {
			return err
		}
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusApproved, input.Notes); err != nil {
			return err
		}
		if err := e.ledger.WithTx(tx).Repoint(ctx, submission.ID, artwork.ID); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionApproved, submission, input.Notes, map[string]any{
			"action":          "link_existing_artwork",
			"artwork_id":      artwork.ID.String(),
			"photos_promoted": promo.Promoted,
			"photos_failed":   len(failures),
		})
	})
	if err != nil {
		return nil, err
	}
	e.cleanupStaged(ctx, submission.ID, promo.Moved)

	return &ReviewOutcome{Submission: submission, ArtworkID: &artwork.ID, PhotoFailures: failures}, nil
}

// approveEdit applies the field diff all-or-nothing, then merges photos. The
// diff is validated against the live artwork before any photo is promoted,
// so a failing edit never moves blobs.
func (e *engine) approveEdit(ctx context.Context, moderatorID uuid.UUID, submission *models.Submission, notes string) (*ReviewOutcome, error) {
	artwork, err := e.artworks.FindByID(ctx, *submission.TargetArtworkID)
	if err != nil {
		return nil, err
	}
	if err := artworks.ApplyDiff(artwork, submission.Payload.Diff); err != nil {
		return nil, err
	}

	stage := e.photoMgr.StageAll(ctx, submission.ID, submission.Payload.Photos)
	promo := e.photoMgr.Promote(ctx, artwork.ID, stage.Staged, artwork.Photos)
	failures := append(stage.Failures, promo.Failures...)
	artwork.Photos = promo.Photos

	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		if err := e.artworks.WithTx(tx).Update(ctx, artwork); err != nil {
			return err
		}
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusApproved, notes); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionApproved, submission, notes, map[string]any{
			"action":          "edit_artwork",
			"artwork_id":      artwork.ID.String(),
			"fields_changed":  len(submission.Payload.Diff),
			"photos_promoted": promo.Promoted,
			"photos_failed":   len(failures),
		})
	})
	if err != nil {
		return nil, err
	}
	e.cleanupStaged(ctx, submission.ID, promo.Moved)

	return &ReviewOutcome{Submission: submission, ArtworkID: &artwork.ID, PhotoFailures: failures}, nil
}

// approveAdditionalInfo merges photos and tags into the target artwork
// without touching its title or description.
func (e *engine) approveAdditionalInfo(ctx context.Context, moderatorID uuid.UUID, submission *models.Submission, notes string) (*ReviewOutcome, error) {
	artwork, err := e.artworks.FindByID(ctx, *submission.TargetArtworkID)
	if err != nil {
		return nil, err
	}

	stage := e.photoMgr.StageAll(ctx, submission.ID, submission.Payload.Photos)
	promo := e.photoMgr.Promote(ctx, artwork.ID, stage.Staged, artwork.Photos)
	failures := append(stage.Failures, promo.Failures...)

	artwork.Photos = promo.Photos
	artwork.Tags = artwork.Tags.Merge(submission.Tags())

	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		if err := e.artworks.WithTx(tx).Update(ctx, artwork); err != nil {
			return err
		}
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusApproved, notes); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionApproved, submission, notes, map[string]any{
			"action":          "merge_additional_info",
			"artwork_id":      artwork.ID.String(),
			"photos_promoted": promo.Promoted,
			"photos_failed":   len(failures),
		})
	})
	if err != nil {
		return nil, err
	}
	e.cleanupStaged(ctx, submission.ID, promo.Moved)

	return &ReviewOutcome{Submission: submission, ArtworkID: &artwork.ID, PhotoFailures: failures}, nil
}

func (e *engine) approveArtist(ctx context.Context, moderatorID uuid.UUID, submission *models.Submission, notes string) (*ReviewOutcome, error) {
	if submission.Payload.ArtistName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "submission carries no artist name")
	}

	var artistID *uuid.UUID
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		artist, err := e.artworks.WithTx(tx).FindOrCreateArtistByName(ctx, submission.Payload.ArtistName)
		if err != nil {
			return err
		}
		if artist.Description == "" && submission.Payload.Description != "" {
			artist.Description = submission.Payload.Description
			artist.Tags = artist.Tags.Merge(submission.Tags())
			if err := e.artworks.WithTx(tx).UpdateArtist(ctx, artist); err != nil {
				return err
			}
		}
		artistID = &artist.ID
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusApproved, notes); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionApproved, submission, notes, map[string]any{
			"action":    "upsert_artist",
			"artist_id": artist.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return &ReviewOutcome{Submission: submission, ArtistID: artistID}, nil
}

func (e *engine) Reject(ctx context.Context, moderatorID, submissionID uuid.UUID, reason string, cleanupPhotos bool) (*ReviewOutcome, error) {
	started := time.Now()

	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderator identity missing")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a rejection reason is required")
	}

	submission, err := e.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := requirePending(submission); err != nil {
		return nil, err
	}

	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.recheckPending(ctx, tx, submission.ID); err != nil {
			return err
		}
		if err := e.markReviewed(ctx, tx, submission, moderatorID, enums.SubmissionStatusRejected, reason); err != nil {
			return err
		}
		return e.recordAudit(ctx, tx, moderatorID, enums.DecisionRejected, submission, reason, map[string]any{
			"action":         "reject",
			"cleanup_photos": cleanupPhotos,
		})
	})
	if err != nil {
		return nil, err
	}

	if cleanupPhotos {
		if err := e.photoMgr.Purge(ctx, stagedPaths(submission.Payload.Photos)); err != nil {
			logCtx := e.logg.WithField(ctx, "error", err.Error())
			e.logg.Warn(e.logg.WithSubmissionID(logCtx, submission.ID.String()), "staged photo purge failed")
		}
	}

	e.pipeline.IncDecision(enums.DecisionRejected.String(), submission.SubmissionType.String())
	e.pipeline.ObserveReviewDuration(enums.DecisionRejected.String(), time.Since(started))
	return &ReviewOutcome{Submission: submission}, nil
}

// BatchReview processes each item in isolation: one item's failure lands in
// the error list and the rest of the batch proceeds.
func (e *engine) BatchReview(ctx context.Context, moderatorID uuid.UUID, items []BatchItem) (*BatchResult, error) {
	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderator identity missing")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch contains no items")
	}
	if len(items) > e.cfg.MaxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch exceeds the maximum of %d items", e.cfg.MaxBatchSize))
	}

	result := &BatchResult{}
	for _, item := range items {
		switch item.Action {
		case enums.DecisionApproved:
			if _, err := e.Approve(ctx, moderatorID, item.SubmissionID, ApproveInput{Notes: item.Reason}); err != nil {
				result.Errors = append(result.Errors, BatchItemError{SubmissionID: item.SubmissionID, Error: err.Error()})
				continue
			}
			result.Approved++
		case enums.DecisionRejected:
			if _, err := e.Reject(ctx, moderatorID, item.SubmissionID, item.Reason, true); err != nil {
				result.Errors = append(result.Errors, BatchItemError{SubmissionID: item.SubmissionID, Error: err.Error()})
				continue
			}
			result.Rejected++
		default:
			result.Errors = append(result.Errors, BatchItemError{
				SubmissionID: item.SubmissionID,
				Error:        fmt.Sprintf("unknown action %q", item.Action),
			})
		}
	}
	return result, nil
}

func (e *engine) ListPending(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)

	var cursor *pkgpagination.Cursor
	if params.Cursor != "" {
		parsed, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, err := e.subs.ListPending(ctx, params.SubmissionType, pkgpagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending submissions")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]QueueItem, len(rows))
	for i, row := range rows {
		items[i] = QueueItem{
			ID:              row.ID,
			SubmissionType:  row.SubmissionType,
			SubmitterKey:    row.SubmitterKey,
			TargetArtworkID: row.TargetArtworkID,
			Payload:         row.Payload,
			SimilarityLevel: similarityLevel(row.Similarity),
			CreatedAt:       row.CreatedAt,
		}
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (e *engine) Get(ctx context.Context, submissionID uuid.UUID) (*ReviewDetail, error) {
	submission, err := e.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	detail := &ReviewDetail{Submission: submission}
	if submission.Similarity != nil {
		var result similarity.Result
		if err := json.Unmarshal([]byte(*submission.Similarity), &result); err == nil {
			detail.Similarity = &result
		}
	}
	return detail, nil
}

// markReviewed flips the submission out of pending and stamps the decision
// fields in the same transaction as the artwork writes.
func (e *engine) markReviewed(ctx context.Context, tx *gorm.DB, submission *models.Submission, moderatorID uuid.UUID, status enums.SubmissionStatus, notes string) error {
	now := time.Now().UTC()
	submission.Status = status
	submission.ModeratorID = &moderatorID
	submission.ReviewedAt = &now
	if notes != "" {
		submission.ModeratorNotes = &notes
	}
	return e.subs.WithTx(tx).Update(ctx, submission)
}

func (e *engine) recordAudit(ctx context.Context, tx *gorm.DB, moderatorID uuid.UUID, decision enums.Decision, submission *models.Submission, reason string, metadata map[string]any) error {
	_, err := e.auditor.WithTx(tx).Record(ctx, moderatorID, decision, submission.ID, reason, dbtypes.TagMap(metadata))
	return err
}

// cleanupStaged removes staged copies once the decision has committed. A
// failure here leaves garbage blobs behind, never broken state.
func (e *engine) cleanupStaged(ctx context.Context, submissionID uuid.UUID, moved []string) {
	if len(moved) == 0 {
		return
	}
	if err := e.photoMgr.Purge(ctx, moved); err != nil {
		logCtx := e.logg.WithField(ctx, "error", err.Error())
		e.logg.Warn(e.logg.WithSubmissionID(logCtx, submissionID.String()), "staged photo cleanup failed")
	}
}

// recheckPending re-reads the status inside the transaction so two
// moderators racing on the same submission cannot both win.
func (e *engine) recheckPending(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error {
	current, err := e.subs.WithTx(tx).FindByID(ctx, submissionID)
	if err != nil {
		return err
	}
	return requirePending(current)
}

func requirePending(submission *models.Submission) error {
	if submission.Status != enums.SubmissionStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "submission already reviewed").
			WithDetails(map[string]string{"status": submission.Status.String()})
	}
	return nil
}

// applyOverrides folds moderator-supplied field corrections into a copy of
// the payload. Overridden values pass through the same sanitization and
// bounds as intake; any failure rejects the whole approval.
func applyOverrides(payload types.SubmissionPayload, o *FieldOverrides) (types.SubmissionPayload, error) {
	if o.empty() {
		return payload, nil
	}

	var errs validation.FieldErrors
	if o.Title != nil {
		title := validation.SanitizeMarkup(strings.TrimSpace(*o.Title))
		switch {
		case title == "":
			errs = append(errs, validation.FieldError{Field: "title", Code: validation.ErrCodeRequired,
				Message: "override cannot be empty"})
		case utf8.RuneCountInString(title) > validation.TitleMaxLen:
			errs = append(errs, validation.FieldError{Field: "title", Code: validation.ErrCodeTooLong,
				Message: fmt.Sprintf("must be at most %d characters", validation.TitleMaxLen)})
		default:
			payload.Title = title
		}
	}
	if o.Description != nil {
		description := validation.SanitizeMarkup(strings.TrimSpace(*o.Description))
		if utf8.RuneCountInString(description) > validation.DescriptionMaxLen {
			errs = append(errs, validation.FieldError{Field: "description", Code: validation.ErrCodeTooLong,
				Message: fmt.Sprintf("must be at most %d characters", validation.DescriptionMaxLen)})
		} else {
			payload.Description = description
		}
	}
	if o.Location != nil {
		if fe := validation.ValidateCoordinates(o.Location.Lat, o.Location.Lng); fe != nil {
			errs = append(errs, *fe)
		} else {
			loc := *o.Location
			payload.Location = &loc
		}
	}
	if len(o.Tags) > 0 {
		normalized, tagErrs := validation.NormalizeTags(o.Tags)
		if len(tagErrs) > 0 {
			errs = append(errs, tagErrs...)
		} else {
			payload.Tags = payload.Tags.Merge(normalized)
		}
	}

	if len(errs) > 0 {
		return payload, errs.AsError()
	}
	return payload, nil
}

func payloadTags(payload types.SubmissionPayload) dbtypes.TagMap {
	if payload.Tags == nil {
		return dbtypes.TagMap{}
	}
	return payload.Tags
}

func stagedPaths(refs []types.PhotoRef) []string {
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Path != "" {
			paths = append(paths, ref.Path)
		}
	}
	return paths
}

func similarityLevel(raw *string) string {
	if raw == nil {
		return ""
	}
	var result similarity.Result
	if err := json.Unmarshal([]byte(*raw), &result); err != nil {
		return ""
	}
	return string(result.Level)
}
