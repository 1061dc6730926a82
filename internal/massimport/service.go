package massimport

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/internal/consent"
	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/internal/submissions"
	"github.com/openartmap/openartmap-backend/internal/validation"
	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	"github.com/openartmap/openartmap-backend/pkg/metrics"
	"github.com/openartmap/openartmap-backend/pkg/security"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type remoteProber interface {
	ValidateRemote(ctx context.Context, rawURL string) error
}

// Service is the bulk intake surface. Feeds authenticate with a shared
// source token; every accepted item becomes one pending submission.
type Service interface {
	ImportArtworks(ctx context.Context, input ImportArtworksInput) (*Result, error)
	ImportArtists(ctx context.Context, input ImportArtistsInput) (*Result, error)
}

// ImportArtworksInput is one artwork feed batch.
type ImportArtworksInput struct {
	Token     string
	Source    string
	SourceURL string
	Features  []ArtworkFeature
}

// ImportArtistsInput is one artist feed batch.
type ImportArtistsInput struct {
	Token     string
	Source    string
	SourceURL string
	Artists   []ArtistObject
}

// ItemOutcome reports one accepted feed item.
type ItemOutcome struct {
	Index         int              `json:"index"`
	SubmissionID  uuid.UUID        `json:"submission_id"`
	PhotoFailures []photos.Failure `json:"photo_failures,omitempty"`
}

// ItemError reports one rejected feed item.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Result is the per-item breakdown of a feed batch.
type Result struct {
	Accepted int           `json:"accepted"`
	Items    []ItemOutcome `json:"items"`
	Errors   []ItemError   `json:"errors,omitempty"`
}

type service struct {
	tx             txRunner
	repo           *submissions.Repository
	ledger         *consent.Ledger
	validator      *validation.Validator
	prober         remoteProber
	cfg            config.MassImportConfig
	consentVersion string
	logg           *logger.Logger
	pipeline       *metrics.PipelineMetrics
}

// NewService builds the mass-import service.
func NewService(tx txRunner, repo *submissions.Repository, ledger *consent.Ledger, validator *validation.Validator, prober remoteProber, cfg config.MassImportConfig, consentVersion string, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (Service, error) {
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
	if prober == nil {
		return nil, fmt.Errorf("remote photo prober required")
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("max batch size must be positive")
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
		prober:         prober,
		cfg:            cfg,
		consentVersion: consentVersion,
		logg:           logg,
		pipeline:       pipeline,
	}, nil
}

func (s *service) ImportArtworks(ctx context.Context, input ImportArtworksInput) (*Result, error) {
	if err := s.authorize(input.Token); err != nil {
		return nil, err
	}
	if err := validateBatch(input.Source, len(input.Features), s.cfg.MaxBatchSize); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, feature := range input.Features {
		outcome, err := s.importArtworkFeature(ctx, input, feature)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Error: err.Error()})
			continue
		}
		outcome.Index = i
		result.Items = append(result.Items, *outcome)
		result.Accepted++
	}

	s.logBatch(ctx, input.Source, "artworks", result)
	return result, nil
}

func (s *service) ImportArtists(ctx context.Context, input ImportArtistsInput) (*Result, error) {
	if err := s.authorize(input.Token); err != nil {
		return nil, err
	}
	if err := validateBatch(input.Source, len(input.Artists), s.cfg.MaxBatchSize); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, artist := range input.Artists {
		outcome, err := s.importArtistObject(ctx, input, artist)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Error: err.Error()})
			continue
		}
		outcome.Index = i
		result.Items = append(result.Items, *outcome)
		result.Accepted++
	}

	s.logBatch(ctx, input.Source, "artists", result)
	return result, nil
}

func (s *service) importArtworkFeature(ctx context.Context, input ImportArtworksInput, feature ArtworkFeature) (*ItemOutcome, error) {
	raw, err := feature.toPayload(input.Source, input.SourceURL)
	if err != nil {
		return nil, err
	}

	// The photo cap is enforced here, before any outbound probe.
	payload, fieldErrs := s.validator.NormalizePayload(raw)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs.AsError()
	}
	if payload.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feature requires a title")
	}

	var photoFailures []photos.Failure
	kept := make([]types.PhotoRef, 0, len(payload.Photos))
	for _, ref := range payload.Photos {
		if err := s.prober.ValidateRemote(ctx, ref.URL); err != nil {
			photoFailures = append(photoFailures, photos.Failure{Ref: ref.URL, Error: err.Error()})
			s.pipeline.IncPhotoFailure("probe")
			continue
		}
		kept = append(kept, ref)
	}
	payload.Photos = kept

	submission, err := s.store(ctx, enums.SubmissionTypeBulkArtwork, input.Source, payload)
	if err != nil {
		return nil, err
	}
	return &ItemOutcome{SubmissionID: submission.ID, PhotoFailures: photoFailures}, nil
}

func (s *service) importArtistObject(ctx context.Context, input ImportArtistsInput, artist ArtistObject) (*ItemOutcome, error) {
	raw := artist.toPayload(input.Source, input.SourceURL)
	if raw.ArtistName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist requires a name")
	}

	payload, fieldErrs := s.validator.NormalizePayload(raw)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs.AsError()
	}

	submission, err := s.store(ctx, enums.SubmissionTypeBulkArtist, input.Source, payload)
	if err != nil {
		return nil, err
	}
	return &ItemOutcome{SubmissionID: submission.ID}, nil
}

// store persists one feed item as a pending submission plus the consent
// record pointing at the feed's license terms.
func (s *service) store(ctx context.Context, subType enums.SubmissionType, source string, payload types.SubmissionPayload) (*models.Submission, error) {
	anonToken := sourceToken(source)
	submission := &models.Submission{
		ID:             uuid.New(),
		SubmissionType: subType,
		AnonToken:      &anonToken,
		SubmitterKey:   anonToken,
		Payload:        payload,
		Status:         enums.SubmissionStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, submission); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).Record(ctx, &models.ConsentRecord{
			AnonToken:      &anonToken,
			ContentType:    enums.ConsentContentSubmission,
			ContentID:      submission.ID,
			ConsentVersion: s.consentVersion,
			TextHash:       consent.HashConsentText(payload.SourceURL),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.pipeline.IncSubmission(subType.String(), "mass_import")
	return submission, nil
}

func (s *service) authorize(token string) error {
	if s.cfg.TokenHash == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "mass import is not enabled")
	}
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "import token required")
	}
	ok, err := security.VerifyImportToken(token, s.cfg.TokenHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify import token")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid import token")
	}
	return nil
}

func (s *service) logBatch(ctx context.Context, source, kind string, result *Result) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"source":   source,
		"kind":     kind,
		"accepted": result.Accepted,
		"rejected": len(result.Errors),
	})
	s.logg.Info(logCtx, "mass import batch processed")
}

func validateBatch(source string, size, max int) error {
	if source == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "source name is required")
	}
	if size == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch contains no items")
	}
	if size > max {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch exceeds the maximum of %d items", max))
	}
	return nil
}

func sourceToken(source string) string {
	return "import:" + source
}
