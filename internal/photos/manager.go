package photos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/openartmap/openartmap-backend/pkg/config"
	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	"github.com/openartmap/openartmap-backend/pkg/metrics"
	"github.com/openartmap/openartmap-backend/pkg/storage/gcs"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// ErrObjectNotFound marks a blob that does not exist. BlobStore
// implementations return errors matching it (via errors.Is) from Delete so
// the manager can tell a missing blob from a real failure.
var ErrObjectNotFound = gcs.ErrObjectNotFound

// BlobStore is the storage surface the lifecycle manager needs.
type BlobStore interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, object string) error
	Rewrite(ctx context.Context, srcBucket, srcObject, dstBucket, dstObject string) error
	Exists(ctx context.Context, bucket, object string) (bool, error)
}

// Failure records one photo's error without failing the parent operation.
type Failure struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

// StageResult is the per-photo breakdown of a staging pass.
type StageResult struct {
	Staged   []string  `json:"staged"`
	Failures []Failure `json:"failures"`
}

// PromoteResult is the per-photo breakdown of a promotion pass. Moved lists
// the staged refs whose permanent copy now exists; the caller purges them
// once the surrounding write has committed.
type PromoteResult struct {
	Photos   dbtypes.StringArray `json:"photos"`
	Promoted int                 `json:"promoted"`
	Failures []Failure           `json:"failures"`
	Moved    []string            `json:"-"`
}

// Manager validates, stages, promotes, and purges photo blobs. All photo
// work is sequential per submission to bound outbound fan-out and keep
// error attribution per-photo.
type Manager struct {
	store      BlobStore
	httpClient *http.Client
	cfg        config.PhotoConfig
	logg       *logger.Logger
	pipeline   *metrics.PipelineMetrics
}

// NewManager builds a photo lifecycle manager.
func NewManager(store BlobStore, httpClient *http.Client, cfg config.PhotoConfig, logg *logger.Logger, pipeline *metrics.PipelineMetrics) (*Manager, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "blob store required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ProbeTimeout}
	}
	return &Manager{
		store:      store,
		httpClient: httpClient,
		cfg:        cfg,
		logg:       logg,
		pipeline:   pipeline,
	}, nil
}

// ValidateRemote probes a photo URL without downloading the body: the URL
// must answer a HEAD with 2xx and an image content type.
func (m *Manager) ValidateRemote(ctx context.Context, rawURL string) error {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo url")
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "photo url unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("photo url returned %s", resp.Status))
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("photo url content type %q is not an image", contentType))
	}
	return nil
}

// StageBytes persists raw photo bytes under the submission's staged path.
// The object name is content-addressed so identical bytes land once.
func (m *Manager) StageBytes(ctx context.Context, submissionID uuid.UUID, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "empty photo payload")
	}
	if max := m.maxUploadBytes(); int64(len(data)) > max {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("photo exceeds %d byte limit", max))
	}

	sum := sha256.Sum256(data)
	object := fmt.Sprintf("%s/%s/%s%s",
		m.stagedPrefix(), submissionID, hex.EncodeToString(sum[:]), extensionFor(contentType))

	if err := m.store.Upload(ctx, "", object, contentType, data); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "staging photo")
	}
	return object, nil
}

// StageFromURL downloads a photo and stages it. Used by bulk intake after
// ValidateRemote has passed.
func (m *Manager) StageFromURL(ctx context.Context, submissionID uuid.UUID, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photo url")
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "downloading photo")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("photo download returned %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxUploadBytes()+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading photo body")
	}
	if int64(len(data)) > m.maxUploadBytes() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("photo exceeds %d byte limit", m.maxUploadBytes()))
	}
	return m.StageBytes(ctx, submissionID, data, resp.Header.Get("Content-Type"))
}

// StageAll stages every photo reference sequentially, isolating failures
// per photo. The parent submission proceeds with whatever staged.
func (m *Manager) StageAll(ctx context.Context, submissionID uuid.UUID, refs []types.PhotoRef) StageResult {
	result := StageResult{}
	for _, ref := range refs {
		switch {
		case ref.Path != "":
			// already staged by a prior pass (retried intake)
			result.Staged = append(result.Staged, ref.Path)
		case ref.URL != "":
			path, err := m.StageFromURL(ctx, submissionID, ref.URL)
			if err != nil {
				result.Failures = append(result.Failures, Failure{Ref: ref.URL, Error: err.Error()})
				m.pipeline.IncPhotoFailure("stage")
				m.warn(ctx, "photo staging failed", ref.URL, err)
				continue
			}
			result.Staged = append(result.Staged, path)
		default:
			result.Failures = append(result.Failures, Failure{Ref: "", Error: "photo reference has neither url nor path"})
		}
	}
	return result
}

// Promote copies staged blobs to the artwork's permanent prefix and unions
// them into the existing photo list. Each photo is independent; re-running
// with the same inputs yields no duplicates, and a staged blob that already
// moved on a previous attempt counts as success. The staged copies stay in
// place so an aborted caller can retry against intact sources; the caller
// purges Moved after its own write commits.
func (m *Manager) Promote(ctx context.Context, artworkID uuid.UUID, stagedRefs []string, existing dbtypes.StringArray) PromoteResult {
	result := PromoteResult{Photos: existing.Union(nil)}
	for _, staged := range stagedRefs {
		permanent := m.permanentPath(artworkID, staged)
		if result.Photos.Contains(permanent) {
			result.Moved = append(result.Moved, staged)
			continue
		}

		if err := m.store.Rewrite(ctx, "", staged, "", permanent); err != nil {
			ok, existsErr := m.store.Exists(ctx, "", permanent)
			if existsErr != nil || !ok {
				result.Failures = append(result.Failures, Failure{Ref: staged, Error: err.Error()})
				m.pipeline.IncPhotoFailure("promote")
				m.warn(ctx, "photo promotion failed", staged, err)
				continue
			}
			// already promoted by an earlier attempt
		}

		result.Photos = result.Photos.Union(dbtypes.StringArray{permanent})
		result.Promoted++
		result.Moved = append(result.Moved, staged)
	}
	return result
}

// Purge deletes staged blobs for a rejected submission. Missing blobs are
// fine; other failures are aggregated so the caller can log them.
func (m *Manager) Purge(ctx context.Context, stagedRefs []string) error {
	var errs error
	for _, staged := range stagedRefs {
		if err := m.store.Delete(ctx, "", staged); err != nil {
			if isNotFound(err) {
				continue
			}
			m.pipeline.IncPhotoFailure("purge")
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", staged, err))
		}
	}
	return errs
}

func (m *Manager) permanentPath(artworkID uuid.UUID, staged string) string {
	base := staged
	if idx := strings.LastIndex(staged, "/"); idx >= 0 {
		base = staged[idx+1:]
	}
	return fmt.Sprintf("%s/%s/%s", m.permanentPrefix(), artworkID, base)
}

func (m *Manager) probeTimeout() time.Duration {
	if m.cfg.ProbeTimeout > 0 {
		return m.cfg.ProbeTimeout
	}
	return 10 * time.Second
}

func (m *Manager) maxUploadBytes() int64 {
	mb := int64(m.cfg.MaxUploadMB)
	if mb <= 0 {
		mb = 20
	}
	return mb << 20
}

func (m *Manager) stagedPrefix() string {
	if m.cfg.StagedPrefix != "" {
		return m.cfg.StagedPrefix
	}
	return "staged"
}

func (m *Manager) permanentPrefix() string {
	if m.cfg.PermanentPrefix != "" {
		return m.cfg.PermanentPrefix
	}
	return "artworks"
}

func (m *Manager) warn(ctx context.Context, msg, ref string, err error) {
	if m.logg == nil {
		return
	}
	logCtx := m.logg.WithFields(ctx, map[string]any{"photo_ref": ref, "error": err.Error()})
	m.logg.Warn(logCtx, msg)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
