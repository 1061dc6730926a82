package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/api/middleware"
	"github.com/openartmap/openartmap-backend/internal/moderation"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

type stubEngine struct {
	approveOut *moderation.ReviewOutcome
	approveErr error
	rejectOut  *moderation.ReviewOutcome
	rejectErr  error
	batchOut   *moderation.BatchResult
	listOut    *moderation.ListResult
	detail     *moderation.ReviewDetail
	detailErr  error

	lastModerator uuid.UUID
	lastReason    string
	lastCleanup   bool
	lastApprove   moderation.ApproveInput
	lastItems     []moderation.BatchItem
}

func (s *stubEngine) Approve(_ context.Context, moderatorID, _ uuid.UUID, input moderation.ApproveInput) (*moderation.ReviewOutcome, error) {
	s.lastModerator = moderatorID
	s.lastApprove = input
	return s.approveOut, s.approveErr
}

func (s *stubEngine) Reject(_ context.Context, moderatorID, _ uuid.UUID, reason string, cleanup bool) (*moderation.ReviewOutcome, error) {
	s.lastModerator = moderatorID
	s.lastReason = reason
	s.lastCleanup = cleanup
	return s.rejectOut, s.rejectErr
}

func (s *stubEngine) BatchReview(_ context.Context, moderatorID uuid.UUID, items []moderation.BatchItem) (*moderation.BatchResult, error) {
	s.lastModerator = moderatorID
	s.lastItems = items
	return s.batchOut, nil
}

func (s *stubEngine) ListPending(context.Context, moderation.ListParams) (*moderation.ListResult, error) {
	return s.listOut, nil
}

func (s *stubEngine) Get(context.Context, uuid.UUID) (*moderation.ReviewDetail, error) {
	return s.detail, s.detailErr
}

type stubSigner struct {
	err error
}

func (s stubSigner) SignedReadURL(bucket, object string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://signed.example.com/" + bucket + "/" + object, nil
}

func moderatorRequest(method, path string, body *bytes.Buffer, submissionID string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithModerator(ctx, true)
	if submissionID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("submissionId", submissionID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func TestReviewApprove(t *testing.T) {
	artworkID := uuid.New()
	engine := &stubEngine{
		approveOut: &moderation.ReviewOutcome{
			Submission: &models.Submission{ID: uuid.New(), Status: enums.SubmissionStatusApproved},
			ArtworkID:  &artworkID,
		},
	}
	handler := ReviewApprove(engine, nil)

	body := bytes.NewBufferString(`{"notes":"verified on site"}`)
	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/approve", body, uuid.NewString())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if engine.lastModerator == uuid.Nil {
		t.Fatal("moderator id should reach the engine")
	}
}

func TestReviewApprovePassesLinkAndOverrides(t *testing.T) {
	engine := &stubEngine{
		approveOut: &moderation.ReviewOutcome{
			Submission: &models.Submission{ID: uuid.New(), Status: enums.SubmissionStatusApproved},
		},
	}
	handler := ReviewApprove(engine, nil)

	linkID := uuid.New()
	body := bytes.NewBufferString(`{"link_artwork_id":"` + linkID.String() + `","overrides":{"title":"Corrected Title"}}`)
	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/approve", body, uuid.NewString())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	if engine.lastApprove.LinkArtworkID == nil || *engine.lastApprove.LinkArtworkID != linkID {
		t.Fatal("link artwork id should reach the engine")
	}
	if engine.lastApprove.Overrides == nil || engine.lastApprove.Overrides.Title == nil || *engine.lastApprove.Overrides.Title != "Corrected Title" {
		t.Fatal("title override should reach the engine")
	}
}

func TestReviewApproveConflict(t *testing.T) {
	engine := &stubEngine{
		approveErr: pkgerrors.New(pkgerrors.CodeStateConflict, "submission already reviewed"),
	}
	handler := ReviewApprove(engine, nil)

	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/approve", bytes.NewBufferString(`{}`), uuid.NewString())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestReviewApproveRejectsBadSubmissionID(t *testing.T) {
	handler := ReviewApprove(&stubEngine{}, nil)

	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/approve", bytes.NewBufferString(`{}`), "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestReviewRejectDefaultsCleanup(t *testing.T) {
	engine := &stubEngine{
		rejectOut: &moderation.ReviewOutcome{
			Submission: &models.Submission{ID: uuid.New(), Status: enums.SubmissionStatusRejected},
		},
	}
	handler := ReviewReject(engine, nil)

	body := bytes.NewBufferString(`{"reason":"blurry photos"}`)
	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/reject", body, uuid.NewString())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !engine.lastCleanup {
		t.Fatal("cleanup should default to true")
	}
	if engine.lastReason != "blurry photos" {
		t.Fatalf("unexpected reason %q", engine.lastReason)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	handler := ReviewReject(&stubEngine{}, nil)

	req := moderatorRequest(http.MethodPost, "/api/v1/review/x/reject", bytes.NewBufferString(`{}`), uuid.NewString())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestReviewBatch(t *testing.T) {
	engine := &stubEngine{
		batchOut: &moderation.BatchResult{Approved: 2, Errors: []moderation.BatchItemError{{SubmissionID: uuid.New(), Error: "not found"}}},
	}
	handler := ReviewBatch(engine, nil)

	payload := map[string]any{
		"items": []map[string]any{
			{"submission_id": uuid.NewString(), "action": "approved"},
			{"submission_id": uuid.NewString(), "action": "approved"},
			{"submission_id": uuid.NewString(), "action": "rejected", "reason": "duplicate"},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := moderatorRequest(http.MethodPost, "/api/v1/review/batch", bytes.NewBuffer(raw), "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(engine.lastItems) != 3 {
		t.Fatalf("expected 3 items, got %d", len(engine.lastItems))
	}
	if engine.lastItems[2].Action != enums.DecisionRejected {
		t.Fatalf("expected rejected action, got %s", engine.lastItems[2].Action)
	}
}

func TestReviewDetailSignsStagedPhotos(t *testing.T) {
	submissionID := uuid.New()
	engine := &stubEngine{
		detail: &moderation.ReviewDetail{
			Submission: &models.Submission{
				ID:             submissionID,
				SubmissionType: enums.SubmissionTypeNewArtwork,
				Payload: types.SubmissionPayload{
					Photos: []types.PhotoRef{
						{Path: "staged/abc/0.jpg"},
						{URL: "https://example.com/not-yet-staged.jpg"},
					},
				},
				Status: enums.SubmissionStatusPending,
			},
		},
	}
	handler := ReviewDetail(engine, stubSigner{}, "openartmap-media", nil)

	req := moderatorRequest(http.MethodGet, "/api/v1/review/x", nil, submissionID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			PhotoPreviews []photoPreview `json:"photo_previews"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.PhotoPreviews) != 1 {
		t.Fatalf("expected 1 preview (unstaged URL skipped), got %d", len(envelope.Data.PhotoPreviews))
	}
	if envelope.Data.PhotoPreviews[0].URL == "" {
		t.Fatal("staged photo should carry a signed URL")
	}
}

func TestReviewDetailToleratesSignerFailure(t *testing.T) {
	submissionID := uuid.New()
	engine := &stubEngine{
		detail: &moderation.ReviewDetail{
			Submission: &models.Submission{
				ID:      submissionID,
				Payload: types.SubmissionPayload{Photos: []types.PhotoRef{{Path: "staged/abc/0.jpg"}}},
			},
		},
	}
	handler := ReviewDetail(engine, stubSigner{err: pkgerrors.New(pkgerrors.CodeDependency, "no signing key")}, "openartmap-media", nil)

	req := moderatorRequest(http.MethodGet, "/api/v1/review/x", nil, submissionID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestReviewQueueRejectsBadTypeFilter(t *testing.T) {
	handler := ReviewQueue(&stubEngine{listOut: &moderation.ListResult{}}, nil)

	req := moderatorRequest(http.MethodGet, "/api/v1/review/queue?type=sculpture", nil, "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
