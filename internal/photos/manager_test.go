package photos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

type stubStore struct {
	objects    map[string][]byte
	uploadErr  error
	rewriteErr map[string]error
	deleteErr  map[string]error
	rewrites   []string
	deletes    []string
}

func newStubStore() *stubStore {
	return &stubStore{
		objects:    make(map[string][]byte),
		rewriteErr: make(map[string]error),
		deleteErr:  make(map[string]error),
	}
}

func (s *stubStore) Upload(_ context.Context, _, object, _ string, data []byte) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.objects[object] = data
	return nil
}

func (s *stubStore) Delete(_ context.Context, _, object string) error {
	if err, ok := s.deleteErr[object]; ok {
		return err
	}
	if _, ok := s.objects[object]; !ok {
		return fmt.Errorf("gcs delete failed: %w", ErrObjectNotFound)
	}
	delete(s.objects, object)
	s.deletes = append(s.deletes, object)
	return nil
}

func (s *stubStore) Rewrite(_ context.Context, _, src, _, dst string) error {
	if err, ok := s.rewriteErr[src]; ok {
		return err
	}
	data, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("gcs rewrite failed: %w", ErrObjectNotFound)
	}
	s.objects[dst] = data
	s.rewrites = append(s.rewrites, src+"->"+dst)
	return nil
}

func (s *stubStore) Exists(_ context.Context, _, object string) (bool, error) {
	_, ok := s.objects[object]
	return ok, nil
}

func testManager(t *testing.T, store BlobStore, client *http.Client) *Manager {
	t.Helper()
	cfg := config.PhotoConfig{
		MaxPerSubmission: 10,
		MaxUploadMB:      20,
		ProbeTimeout:     2 * time.Second,
		StagedPrefix:     "staged",
		PermanentPrefix:  "artworks",
	}
	m, err := NewManager(store, client, cfg, nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestValidateRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		switch r.URL.Path {
		case "/photo.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m := testManager(t, newStubStore(), srv.Client())
	ctx := context.Background()

	if err := m.ValidateRemote(ctx, srv.URL+"/photo.jpg"); err != nil {
		t.Fatalf("expected image url to validate: %v", err)
	}
	if err := m.ValidateRemote(ctx, srv.URL+"/page.html"); err == nil {
		t.Fatal("expected non-image content type to fail")
	}
	if err := m.ValidateRemote(ctx, srv.URL+"/missing.jpg"); err == nil {
		t.Fatal("expected 404 to fail")
	}
}

func TestStageBytesIsContentAddressed(t *testing.T) {
	store := newStubStore()
	m := testManager(t, store, nil)
	subID := uuid.New()

	first, err := m.StageBytes(context.Background(), subID, []byte("same bytes"), "image/png")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	second, err := m.StageBytes(context.Background(), subID, []byte("same bytes"), "image/png")
	if err != nil {
		t.Fatalf("stage again: %v", err)
	}
	if first != second {
		t.Fatalf("identical bytes should produce identical paths: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "staged/"+subID.String()+"/") {
		t.Fatalf("unexpected staged path %s", first)
	}
	if !strings.HasSuffix(first, ".png") {
		t.Fatalf("expected .png extension, got %s", first)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.objects))
	}
}

func TestStageAllIsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("bytes for " + r.URL.Path))
	}))
	defer srv.Close()

	store := newStubStore()
	m := testManager(t, store, srv.Client())

	refs := []types.PhotoRef{
		{URL: srv.URL + "/a.jpg"},
		{URL: srv.URL + "/broken.jpg"},
		{URL: srv.URL + "/b.jpg"},
	}
	result := m.StageAll(context.Background(), uuid.New(), refs)

	if len(result.Staged) != 2 {
		t.Fatalf("expected 2 staged, got %d", len(result.Staged))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Ref != srv.URL+"/broken.jpg" {
		t.Fatalf("failure should carry the offending url, got %s", result.Failures[0].Ref)
	}
}

func TestPromoteMovesAndDedupes(t *testing.T) {
	store := newStubStore()
	m := testManager(t, store, nil)
	artworkID := uuid.New()

	staged := []string{
		"staged/sub-1/aaa.jpg",
		"staged/sub-1/bbb.jpg",
	}
	for _, s := range staged {
		store.objects[s] = []byte(s)
	}

	result := m.Promote(context.Background(), artworkID, staged, nil)
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if result.Promoted != 2 {
		t.Fatalf("expected 2 promoted, got %d", result.Promoted)
	}
	for _, p := range result.Photos {
		if strings.HasPrefix(p, "staged/") {
			t.Fatalf("promoted list contains staged path %s", p)
		}
		if !strings.HasPrefix(p, "artworks/"+artworkID.String()+"/") {
			t.Fatalf("unexpected permanent path %s", p)
		}
	}
	// staged copies survive until the caller's write commits
	for _, s := range staged {
		if _, ok := store.objects[s]; !ok {
			t.Fatalf("staged blob %s should remain after promote", s)
		}
	}
	if len(result.Moved) != 2 {
		t.Fatalf("expected 2 moved refs for later cleanup, got %d", len(result.Moved))
	}

	// re-running with the same staged set must not duplicate entries
	again := m.Promote(context.Background(), artworkID, staged, result.Photos)
	if len(again.Photos) != 2 {
		t.Fatalf("set-union violated: got %d photos", len(again.Photos))
	}
	if again.Promoted != 0 {
		t.Fatalf("nothing new should promote on replay, got %d", again.Promoted)
	}
	if len(again.Moved) != 2 {
		t.Fatalf("replayed refs still need cleanup, got %d moved", len(again.Moved))
	}
}

func TestPromoteTreatsAlreadyMovedAsSuccess(t *testing.T) {
	store := newStubStore()
	m := testManager(t, store, nil)
	artworkID := uuid.New()

	// staged blob is gone but the permanent copy exists from a prior attempt
	staged := "staged/sub-1/ccc.jpg"
	permanent := fmt.Sprintf("artworks/%s/ccc.jpg", artworkID)
	store.objects[permanent] = []byte("moved earlier")

	result := m.Promote(context.Background(), artworkID, []string{staged}, nil)
	if len(result.Failures) != 0 {
		t.Fatalf("expected already-moved blob to count as success, got %v", result.Failures)
	}
	if !result.Photos.Contains(permanent) {
		t.Fatalf("expected %s in photo list", permanent)
	}
}

func TestPromoteIsolatesPerPhotoFailure(t *testing.T) {
	store := newStubStore()
	m := testManager(t, store, nil)
	artworkID := uuid.New()

	good := "staged/sub-1/good.jpg"
	bad := "staged/sub-1/bad.jpg"
	store.objects[good] = []byte("good")
	store.objects[bad] = []byte("bad")
	store.rewriteErr[bad] = errors.New("backend exploded")

	result := m.Promote(context.Background(), artworkID, []string{bad, good}, nil)
	if len(result.Failures) != 1 || result.Failures[0].Ref != bad {
		t.Fatalf("expected one failure for %s, got %v", bad, result.Failures)
	}
	if result.Promoted != 1 {
		t.Fatalf("good photo should still promote, got %d", result.Promoted)
	}
}

func TestPurge(t *testing.T) {
	store := newStubStore()
	m := testManager(t, store, nil)

	present := "staged/sub-1/x.jpg"
	store.objects[present] = []byte("x")

	if err := m.Purge(context.Background(), []string{present, "staged/sub-1/gone.jpg"}); err != nil {
		t.Fatalf("missing blobs should be tolerated: %v", err)
	}
	if _, ok := store.objects[present]; ok {
		t.Fatal("expected staged blob purged")
	}

	store.objects["staged/sub-2/y.jpg"] = []byte("y")
	store.deleteErr["staged/sub-2/y.jpg"] = errors.New("backend exploded")
	if err := m.Purge(context.Background(), []string{"staged/sub-2/y.jpg"}); err == nil {
		t.Fatal("expected aggregated purge error")
	}

	// only the sentinel marks a missing blob; matching error text does not
	store.objects["staged/sub-3/z.jpg"] = []byte("z")
	store.deleteErr["staged/sub-3/z.jpg"] = errors.New("upstream proxy: not found")
	if err := m.Purge(context.Background(), []string{"staged/sub-3/z.jpg"}); err == nil {
		t.Fatal("non-sentinel errors must surface even when their text mentions not found")
	}
}

func TestStageFromURLEnforcesSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(make([]byte, 2<<20))
	}))
	defer srv.Close()

	store := newStubStore()
	cfg := config.PhotoConfig{MaxPerSubmission: 10, MaxUploadMB: 1, ProbeTimeout: 2 * time.Second}
	m, err := NewManager(store, srv.Client(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := m.StageFromURL(context.Background(), uuid.New(), srv.URL+"/big.jpg"); err == nil {
		t.Fatal("expected oversized photo to be rejected")
	}
	if len(store.objects) != 0 {
		t.Fatal("oversized photo must not be stored")
	}
}
