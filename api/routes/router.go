package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openartmap/openartmap-backend/api/controllers"
	"github.com/openartmap/openartmap-backend/api/middleware"
	"github.com/openartmap/openartmap-backend/internal/massimport"
	"github.com/openartmap/openartmap-backend/internal/moderation"
	"github.com/openartmap/openartmap-backend/internal/submissions"
	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/logger"
	"github.com/openartmap/openartmap-backend/pkg/redis"
)

// NewRouter wires the HTTP surface: public health probes, the intake
// endpoints shared by interactive submitters and bulk feeds, and the
// moderator-only review endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	redisClient *redis.Client,
	submissionService submissions.Service,
	importService massimport.Service,
	moderationEngine moderation.Engine,
	photoSigner controllers.StagedPhotoSigner,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	intakePolicy := middleware.NewIntakeRateLimitPolicy(
		"intake",
		cfg.IntakeLimit.Window,
		cfg.IntakeLimit.IPLimit,
		cfg.IntakeLimit.SubmitterLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/submissions", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.With(
			middleware.IntakeRateLimit(intakePolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/", controllers.SubmissionCreate(submissionService, logg))
		r.Get("/mine", controllers.SubmissionListMine(submissionService, logg))
	})

	// Bulk feeds authenticate with the shared source token inside the
	// service, not with a bearer credential.
	r.Route("/api/v1/import", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/artworks", controllers.ImportArtworks(importService, logg))
		r.Post("/artists", controllers.ImportArtists(importService, logg))
	})

	r.Route("/api/v1/review", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireModerator(logg),
			middleware.Idempotency(redisClient, logg),
		)
		r.Get("/queue", controllers.ReviewQueue(moderationEngine, logg))
		r.Get("/{submissionId}", controllers.ReviewDetail(moderationEngine, photoSigner, cfg.GCS.BucketName, logg))
		r.Post("/{submissionId}/approve", controllers.ReviewApprove(moderationEngine, logg))
		r.Post("/{submissionId}/reject", controllers.ReviewReject(moderationEngine, logg))
		r.Post("/batch", controllers.ReviewBatch(moderationEngine, logg))
	})

	return r
}
