package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/api/middleware"
	"github.com/openartmap/openartmap-backend/api/responses"
	"github.com/openartmap/openartmap-backend/api/validators"
	"github.com/openartmap/openartmap-backend/internal/moderation"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// previewURLTTL bounds how long a staged-photo preview link stays usable.
const previewURLTTL = 15 * time.Minute

// StagedPhotoSigner mints short-lived read URLs for staged blobs so
// moderators can preview photos that are not public yet.
type StagedPhotoSigner interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

type reviewDetailResponse struct {
	*moderation.ReviewDetail
	PhotoPreviews []photoPreview `json:"photo_previews,omitempty"`
}

type photoPreview struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

type reviewApproveRequest struct {
	Notes         string                     `json:"notes,omitempty"`
	LinkArtworkID types.NullableUUID         `json:"link_artwork_id,omitempty"`
	Overrides     *moderation.FieldOverrides `json:"overrides,omitempty"`
}

type reviewRejectRequest struct {
	Reason        string `json:"reason" validate:"required"`
	CleanupPhotos *bool  `json:"cleanup_photos,omitempty"`
}

type reviewBatchRequest struct {
	Items []reviewBatchItem `json:"items" validate:"required,min=1,dive"`
}

type reviewBatchItem struct {
	SubmissionID uuid.UUID `json:"submission_id" validate:"required"`
	Action       string    `json:"action" validate:"required"`
	Reason       string    `json:"reason,omitempty"`
}

// ReviewQueue lists pending submissions, oldest context first for triage.
func ReviewQueue(engine moderation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation engine unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pkgpagination.DefaultLimit, 1, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := moderation.ListParams{
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}
		if raw := r.URL.Query().Get("type"); raw != "" {
			subType := enums.SubmissionType(raw)
			if !subType.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown submission type filter").WithDetails(map[string]string{"type": raw}))
				return
			}
			params.SubmissionType = subType
		}

		result, err := engine.ListPending(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ReviewDetail returns one submission with its similarity context and signed
// preview links for any staged photos.
func ReviewDetail(engine moderation.Engine, signer StagedPhotoSigner, bucket string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation engine unavailable"))
			return
		}

		submissionID, err := submissionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := engine.Get(r.Context(), submissionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := reviewDetailResponse{ReviewDetail: detail}
		for _, ref := range detail.Submission.Payload.Photos {
			if ref.Path == "" {
				continue
			}
			preview := photoPreview{Path: ref.Path}
			if signer != nil {
				signed, signErr := signer.SignedReadURL(bucket, ref.Path, previewURLTTL)
				if signErr != nil {
					if logg != nil {
						ctx := logg.WithField(r.Context(), "path", ref.Path)
						logg.Warn(logg.WithField(ctx, "error", signErr.Error()), "staged photo preview signing failed")
					}
				} else {
					preview.URL = signed
				}
			}
			resp.PhotoPreviews = append(resp.PhotoPreviews, preview)
		}

		responses.WriteSuccess(w, resp)
	}
}

// ReviewApprove applies the submission and returns what it produced.
func ReviewApprove(engine moderation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation engine unavailable"))
			return
		}

		moderatorID, err := moderatorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submissionID, err := submissionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewApproveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := moderation.ApproveInput{
			Notes:         payload.Notes,
			LinkArtworkID: payload.LinkArtworkID.Value,
			Overrides:     payload.Overrides,
		}

		outcome, err := engine.Approve(r.Context(), moderatorID, submissionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

// ReviewReject declines the submission with a mandatory reason.
func ReviewReject(engine moderation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation engine unavailable"))
			return
		}

		moderatorID, err := moderatorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submissionID, err := submissionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cleanup := true
		if payload.CleanupPhotos != nil {
			cleanup = *payload.CleanupPhotos
		}

		outcome, err := engine.Reject(r.Context(), moderatorID, submissionID, payload.Reason, cleanup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

// ReviewBatch applies a list of decisions, isolating per-item failures.
func ReviewBatch(engine moderation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation engine unavailable"))
			return
		}

		moderatorID, err := moderatorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]moderation.BatchItem, len(payload.Items))
		for i, item := range payload.Items {
			items[i] = moderation.BatchItem{
				SubmissionID: item.SubmissionID,
				Action:       enums.Decision(item.Action),
				Reason:       item.Reason,
			}
		}

		result, err := engine.BatchReview(r.Context(), moderatorID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func submissionIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "submissionId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid submission id")
	}
	return id, nil
}

func moderatorIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "moderator identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid moderator id")
	}
	return id, nil
}
