package similarity

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/pkg/config"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// Level classifies how likely a submission duplicates an existing artwork.
type Level string

const (
	LevelNone    Level = "none"
	LevelWarning Level = "warning"
	LevelHigh    Level = "high"
)

// Match is one nearby artwork with its similarity signals.
type Match struct {
	ArtworkID       uuid.UUID `json:"artwork_id"`
	Title           string    `json:"title"`
	DistanceMeters  float64   `json:"distance_meters"`
	TitleSimilarity float64   `json:"title_similarity"`
	Level           Level     `json:"level"`
}

// Result carries the overall classification plus the ranked candidate list.
type Result struct {
	Level   Level   `json:"level"`
	Matches []Match `json:"matches"`
}

type candidateFinder interface {
	FindNearby(ctx context.Context, location types.GeographyPoint, radiusMeters float64, limit int) ([]models.Artwork, error)
}

// Resolver flags probable duplicates. It is advisory only: callers record
// the result but never block intake on it.
type Resolver struct {
	repo candidateFinder
	cfg  config.SimilarityConfig
}

// NewResolver builds a resolver with the configured radius and thresholds.
func NewResolver(repo candidateFinder, cfg config.SimilarityConfig) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "artwork finder required")
	}
	if cfg.RadiusMeters <= 0 || cfg.WarningThreshold <= 0 || cfg.HighThreshold < cfg.WarningThreshold {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invalid similarity thresholds")
	}
	return &Resolver{repo: repo, cfg: cfg}, nil
}

// Resolve returns nearby artworks ranked by title similarity then distance.
// Title is optional; a nearby artwork with no comparable title still rates a
// warning since proximity alone is a duplicate signal.
func (r *Resolver) Resolve(ctx context.Context, location types.GeographyPoint, title string) (*Result, error) {
	candidates, err := r.repo.FindNearby(ctx, location, r.cfg.RadiusMeters, r.cfg.MaxCandidates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying nearby artworks")
	}
	if len(candidates) == 0 {
		return &Result{Level: LevelNone, Matches: []Match{}}, nil
	}

	matches := make([]Match, 0, len(candidates))
	overall := LevelNone
	for _, artwork := range candidates {
		match := Match{
			ArtworkID:      artwork.ID,
			Title:          artwork.Title,
			DistanceMeters: HaversineMeters(location, artwork.Location),
		}
		if title != "" {
			match.TitleSimilarity = TitleSimilarity(title, artwork.Title)
		}
		match.Level = r.classify(title, match.TitleSimilarity)
		matches = append(matches, match)
		if rank(match.Level) > rank(overall) {
			overall = match.Level
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].TitleSimilarity != matches[j].TitleSimilarity {
			return matches[i].TitleSimilarity > matches[j].TitleSimilarity
		}
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})

	return &Result{Level: overall, Matches: matches}, nil
}

func (r *Resolver) classify(title string, similarity float64) Level {
	if title == "" {
		return LevelWarning
	}
	switch {
	case similarity >= r.cfg.HighThreshold:
		return LevelHigh
	case similarity >= r.cfg.WarningThreshold:
		return LevelWarning
	default:
		return LevelNone
	}
}

func rank(l Level) int {
	switch l {
	case LevelHigh:
		return 2
	case LevelWarning:
		return 1
	default:
		return 0
	}
}
