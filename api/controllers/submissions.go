package controllers

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/api/middleware"
	"github.com/openartmap/openartmap-backend/api/responses"
	"github.com/openartmap/openartmap-backend/api/validators"
	"github.com/openartmap/openartmap-backend/internal/submissions"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

type submissionCreateRequest struct {
	SubmissionType  string                  `json:"submission_type" validate:"required"`
	TargetArtworkID types.NullableUUID      `json:"target_artwork_id,omitempty"`
	Payload         types.SubmissionPayload `json:"payload"`
	ConsentGranted  bool                    `json:"consent_granted"`
	ConsentText     string                  `json:"consent_text,omitempty"`
}

// multipart intake: form fields mirror the JSON names, photo files arrive
// as repeated parts under this field.
const (
	multipartMaxMemory = 32 << 20
	photoFileField     = "photos"
)

// SubmissionCreate files one interactive submission for the caller identified
// by the auth middleware (bearer token or anon token header). It accepts
// either a JSON body or a multipart form carrying photo files.
func SubmissionCreate(svc submissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "submission service unavailable"))
			return
		}

		var payload submissionCreateRequest
		var uploads []submissions.PhotoUpload
		if isMultipart(r) {
			decoded, files, err := decodeMultipartSubmission(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			payload, uploads = decoded, files
		} else if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := submissions.SubmitInput{
			SubmissionType:  enums.SubmissionType(payload.SubmissionType),
			TargetArtworkID: payload.TargetArtworkID.Value,
			Payload:         payload.Payload,
			PhotoUploads:    uploads,
			ConsentGranted:  payload.ConsentGranted,
			ConsentText:     payload.ConsentText,
			IPAddress:       middleware.ClientIP(r),
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			uid, err := uuid.Parse(userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}
			input.SubmitterID = &uid
		} else if anon := middleware.AnonTokenFromContext(r.Context()); anon != "" {
			input.AnonToken = &anon
		}

		out, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeMultipartSubmission reads the multipart intake shape: scalar fields
// under their JSON names, the payload as one JSON-encoded field, and photo
// files as repeated "photos" parts.
func decodeMultipartSubmission(r *http.Request) (submissionCreateRequest, []submissions.PhotoUpload, error) {
	var req submissionCreateRequest
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		return req, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	req.SubmissionType = r.FormValue("submission_type")
	if req.SubmissionType == "" {
		return req, nil, pkgerrors.New(pkgerrors.CodeValidation, "submission_type is required")
	}
	req.ConsentText = r.FormValue("consent_text")
	if raw := r.FormValue("consent_granted"); raw != "" {
		granted, err := strconv.ParseBool(raw)
		if err != nil {
			return req, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid consent_granted value")
		}
		req.ConsentGranted = granted
	}
	if raw := r.FormValue("target_artwork_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return req, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target artwork id")
		}
		req.TargetArtworkID = types.NullableUUID{Valid: true, Value: &id}
	}
	if raw := r.FormValue("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Payload); err != nil {
			return req, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload json")
		}
	}

	var uploads []submissions.PhotoUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File[photoFileField] {
			upload, err := readPhotoUpload(header)
			if err != nil {
				return req, nil, err
			}
			uploads = append(uploads, upload)
		}
	}
	return req, uploads, nil
}

func readPhotoUpload(header *multipart.FileHeader) (submissions.PhotoUpload, error) {
	file, err := header.Open()
	if err != nil {
		return submissions.PhotoUpload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "opening uploaded photo")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return submissions.PhotoUpload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading uploaded photo")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return submissions.PhotoUpload{Name: header.Filename, Data: data, ContentType: contentType}, nil
}

// SubmissionListMine returns the caller's own submissions, newest first.
func SubmissionListMine(svc submissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "submission service unavailable"))
			return
		}

		submitterKey := middleware.SubmitterKeyFromContext(r.Context())
		if submitterKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "submitter identity missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pkgpagination.DefaultLimit, 1, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := submissions.ListParams{
			SubmitterKey: submitterKey,
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}

		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.SubmissionStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").WithDetails(map[string]string{"status": raw}))
				return
			}
			params.Status = status
		}

		result, err := svc.ListMine(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
