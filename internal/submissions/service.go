package submissions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/internal/consent"
	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/internal/similarity"
	"github.com/openartmap/openartmap-backend/internal/validation"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
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

type similarityResolver interface {
	Resolve(ctx context.Context, location types.GeographyPoint, title string) (*similarity.Result, error)
}

type photoStager interface {
	StageAll(ctx context.Context, submissionID uuid.UUID, refs []types.PhotoRef) photos.StageResult
	StageBytes(ctx context.Context, submissionID uuid.UUID, data []byte, contentType string) (string, error)
	Purge(ctx context.Context, stagedRefs []string) error
}

// Service exposes the interactive intake surface: accepting submissions and
// letting a submitter see what they filed.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitOutput, error)
	ListMine(ctx context.Context, params ListParams) (*ListResult, error)
}

// SubmitInput is the canonical form an interactive submission arrives in
// after the controller has decoded it.
type SubmitInput struct {
	SubmitterID     *uuid.UUID
	AnonToken       *string
	SubmissionType  enums.SubmissionType
	TargetArtworkID *uuid.UUID
	Payload         types.SubmissionPayload
	PhotoUploads    []PhotoUpload
	ConsentGranted  bool
	ConsentText     string
	IPAddress       string
}

// PhotoUpload carries the bytes of one photo file posted with the multipart
// form. Name is only used to attribute per-photo failures.
type PhotoUpload struct {
	Name        string
	Data        []byte
	ContentType string
	Caption     string
	Credit      string
}

type service struct {
	tx             txRunner
	repo           *Repository
	ledger         *consent.Ledger
	validator      *validation.Validator
	resolver       similarityResolver
	stager         photoStager
	consentVersion string
	logg           *logger.Logger
	pipeline       *metrics.PipelineMetrics
}

// NewService builds the intake service backed by the provided collaborators.
func NewService(tx txRunner, repo *Repository, ledger *consent.Ledger, validator *validation.Validator, resolver similarityResolver, stager photoStager, consentVersion string, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("submission repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("consent ledger required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("similarity resolver required")
	}
	if stager == nil {
		return nil, fmt.Errorf("photo stager required")
	}
	if consentVersion == "" {
		return nil, fmt.Errorf("consent version required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:             tx,
		repo:           repo,
		ledger:         ledger,
		validator:      validator,
		resolver:       resolver,
		stager:         stager,
		consentVersion: consentVersion,
		logg:           logg,
		pipeline:       pipeline,
	}, nil
}

// interactiveTypes lists the submission types the public form can file. Bulk
// types arrive through the mass-import surface instead.
var interactiveTypes = map[enums.SubmissionType]bool{
	enums.SubmissionTypeNewArtwork:     true,
	enums.SubmissionTypeEditArtwork:    true,
	enums.SubmissionTypeAdditionalInfo: true,
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitOutput, error) {
	submitterKey, err := resolveSubmitterKey(input.SubmitterID, input.AnonToken)
	if err != nil {
		return nil, err
	}

	if !interactiveTypes[input.SubmissionType] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported submission type").
			WithDetails(map[string]string{"submission_type": input.SubmissionType.String()})
	}
	if input.SubmissionType.RequiresTarget() {
		if input.TargetArtworkID == nil || *input.TargetArtworkID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target artwork id is required for this submission type")
		}
	} else if input.TargetArtworkID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new artwork submissions must not reference a target artwork")
	}

	if !input.ConsentGranted || input.ConsentText == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo license consent is required")
	}

	payload, fieldErrs := s.validator.NormalizePayload(input.Payload)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs.AsError()
	}
	if len(payload.Photos)+len(input.PhotoUploads) > s.validator.MaxPhotos() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("a submission carries at most %d photos", s.validator.MaxPhotos()))
	}
	if err := validateTypeRequirements(input.SubmissionType, payload, len(input.PhotoUploads)); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		ID:              uuid.New(),
		SubmissionType:  input.SubmissionType,
		SubmitterID:     input.SubmitterID,
		AnonToken:       input.AnonToken,
		SubmitterKey:    submitterKey,
		TargetArtworkID: input.TargetArtworkID,
		Status:          enums.SubmissionStatusPending,
	}

	if input.SubmissionType == enums.SubmissionTypeNewArtwork {
		submission.Similarity = s.resolveSimilarity(ctx, payload)
	}

	stage := s.stager.StageAll(ctx, submission.ID, payload.Photos)
	payload.Photos = rebuildPhotoRefs(payload.Photos, stage)
	for _, up := range input.PhotoUploads {
		path, err := s.stager.StageBytes(ctx, submission.ID, up.Data, up.ContentType)
		if err != nil {
			stage.Failures = append(stage.Failures, photos.Failure{Ref: up.Name, Error: err.Error()})
			continue
		}
		stage.Staged = append(stage.Staged, path)
		payload.Photos = append(payload.Photos, types.PhotoRef{Path: path, Caption: up.Caption, Credit: up.Credit})
	}
	if len(payload.Photos) == 0 && len(stage.Failures) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "no photo could be staged").
			WithDetails(stage.Failures)
	}
	submission.Payload = payload

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, submission); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).Record(ctx, &models.ConsentRecord{
			UserID:         input.SubmitterID,
			AnonToken:      input.AnonToken,
			ContentType:    enums.ConsentContentSubmission,
			ContentID:      submission.ID,
			ConsentVersion: s.consentVersion,
			IPAddress:      input.IPAddress,
			TextHash:       consent.HashConsentText(input.ConsentText),
		})
		return err
	})
	if err != nil {
		// without a submission row nothing will ever purge these blobs
		if len(stage.Staged) > 0 {
			if purgeErr := s.stager.Purge(ctx, stage.Staged); purgeErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", purgeErr.Error()), "staged photo cleanup failed")
			}
		}
		return nil, err
	}

	s.pipeline.IncSubmission(submission.SubmissionType.String(), "interactive")
	logCtx := s.logg.WithSubmissionID(ctx, submission.ID.String())
	s.logg.Info(logCtx, "submission accepted")

	return &SubmitOutput{Submission: submission, PhotoFailures: stage.Failures}, nil
}

func (s *service) ListMine(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.SubmitterKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "submitter identity missing")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		submitterKey: params.SubmitterKey,
		status:       params.Status,
		limit:        pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list submissions")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

// resolveSimilarity runs the advisory duplicate check. The result only
// informs moderators, so resolver trouble is logged and swallowed rather
// than blocking intake.
func (s *service) resolveSimilarity(ctx context.Context, payload types.SubmissionPayload) *string {
	if payload.Location == nil {
		return nil
	}

	result, err := s.resolver.Resolve(ctx, *payload.Location, payload.Title)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "similarity resolution failed")
		return nil
	}
	if result == nil || (result.Level == similarity.LevelNone && len(result.Matches) == 0) {
		return nil
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "similarity result encoding failed")
		return nil
	}

	s.pipeline.IncSimilarityFlag(string(result.Level))
	raw := string(encoded)
	return &raw
}

func resolveSubmitterKey(userID *uuid.UUID, anonToken *string) (string, error) {
	hasUser := userID != nil && *userID != uuid.Nil
	hasAnon := anonToken != nil && *anonToken != ""
	if hasUser == hasAnon {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			"exactly one of an authenticated user or an anonymous token is required")
	}
	if hasUser {
		return userID.String(), nil
	}
	return *anonToken, nil
}

func validateTypeRequirements(subType enums.SubmissionType, payload types.SubmissionPayload, uploads int) error {
	switch subType {
	case enums.SubmissionTypeNewArtwork:
		if payload.Location == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "location is required for a new artwork")
		}
		if payload.Title == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "title is required for a new artwork")
		}
	case enums.SubmissionTypeEditArtwork:
		if len(payload.Diff) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "an edit submission requires at least one field change")
		}
	case enums.SubmissionTypeAdditionalInfo:
		if len(payload.Photos)+uploads == 0 && payload.Note == "" && len(payload.Tags) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "additional info requires photos, a note, or tags")
		}
	}
	return nil
}

// rebuildPhotoRefs swaps staged object paths into the payload refs,
// dropping the refs that failed to stage. Staged paths arrive in input
// order, so successes are consumed front to back.
func rebuildPhotoRefs(refs []types.PhotoRef, stage photos.StageResult) []types.PhotoRef {
	failed := make(map[string]int, len(stage.Failures))
	for _, f := range stage.Failures {
		failed[f.Ref]++
	}

	out := make([]types.PhotoRef, 0, len(stage.Staged))
	next := 0
	for _, ref := range refs {
		key := ref.URL
		if ref.Path != "" {
			key = ref.Path
		}
		if n := failed[key]; n > 0 {
			failed[key] = n - 1
			continue
		}
		if next >= len(stage.Staged) {
			break
		}
		ref.Path = stage.Staged[next]
		next++
		out = append(out, ref)
	}
	return out
}
