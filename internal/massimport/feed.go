package massimport

import (
	"encoding/json"
	"fmt"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// ArtworkFeature is the GeoJSON-like shape open-data feeds deliver artworks
// in. Only Point geometries are accepted.
type ArtworkFeature struct {
	Type       string            `json:"type"`
	Geometry   FeatureGeometry   `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// FeatureGeometry carries coordinates in GeoJSON order: [longitude, latitude].
type FeatureGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties is the property bag of one artwork feature.
type FeatureProperties struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tags        map[string]any `json:"tags"`
	Photos      []PhotoEntry   `json:"photos"`
	ArtistName  string         `json:"artist_name"`
}

// ArtistObject is the flat shape artist feeds deliver.
type ArtistObject struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        map[string]any `json:"tags"`
	SourceURL   string         `json:"source_url"`
}

// PhotoEntry accepts either a bare URL string or an object with url, caption,
// and credit. Feeds mix both shapes in the same array.
type PhotoEntry struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Credit  string `json:"credit"`
}

func (p *PhotoEntry) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*p = PhotoEntry{URL: raw}
		return nil
	}

	type photoObject PhotoEntry
	var obj photoObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("photo entry must be a url string or an object: %w", err)
	}
	*p = PhotoEntry(obj)
	return nil
}

// toPayload converts one feature into a canonical submission payload. The
// payload still carries raw photo URLs; staging happens at approval.
func (f ArtworkFeature) toPayload(source, sourceURL string) (types.SubmissionPayload, error) {
	if f.Geometry.Type != "Point" {
		return types.SubmissionPayload{}, fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}
	if len(f.Geometry.Coordinates) != 2 {
		return types.SubmissionPayload{}, fmt.Errorf("point geometry requires [longitude, latitude]")
	}

	refs := make([]types.PhotoRef, 0, len(f.Properties.Photos))
	for _, photo := range f.Properties.Photos {
		refs = append(refs, types.PhotoRef{URL: photo.URL, Caption: photo.Caption, Credit: photo.Credit})
	}

	payload := types.SubmissionPayload{
		Location: &types.GeographyPoint{
			Lng: f.Geometry.Coordinates[0],
			Lat: f.Geometry.Coordinates[1],
		},
		Title:       f.Properties.Title,
		Description: f.Properties.Description,
		Tags:        dbtypes.TagMap(f.Properties.Tags),
		Photos:      refs,
		Source:      source,
		SourceURL:   sourceURL,
		ArtistName:  f.Properties.ArtistName,
	}
	return payload, nil
}

func (a ArtistObject) toPayload(source, sourceURL string) types.SubmissionPayload {
	if a.SourceURL != "" {
		sourceURL = a.SourceURL
	}
	return types.SubmissionPayload{
		ArtistName:  a.Name,
		Description: a.Description,
		Tags:        dbtypes.TagMap(a.Tags),
		Source:      source,
		SourceURL:   sourceURL,
	}
}
