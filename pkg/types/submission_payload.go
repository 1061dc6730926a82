package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
)

// PhotoRef points at one photo attached to a submission. Path is set once the
// photo is staged; URL/Caption/Credit carry what bulk feeds supplied.
type PhotoRef struct {
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

// FieldChange records one side-by-side field edit.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// FieldDiff is the field-level diff carried by edit submissions.
type FieldDiff map[string]FieldChange

// SubmissionPayload is the structured body of a canonical submission. All
// intake shapes (interactive form, bulk artwork Feature, bulk artist object)
// collapse into this one record before validation.
type SubmissionPayload struct {
	Location    *GeographyPoint `json:"location,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Note        string          `json:"note,omitempty"`
	Tags        dbtypes.TagMap  `json:"tags,omitempty"`
	Photos      []PhotoRef      `json:"photos,omitempty"`
	Diff        FieldDiff       `json:"diff,omitempty"`

	// Bulk-intake provenance.
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	// Bulk artist payloads.
	ArtistName string `json:"artist_name,omitempty"`
}

// Value serializes the payload as JSONB.
func (p SubmissionPayload) Value() (driver.Value, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("submission payload: marshal: %w", err)
	}
	return string(encoded), nil
}

// Scan accepts the JSONB column content.
func (p *SubmissionPayload) Scan(src any) error {
	if src == nil {
		*p = SubmissionPayload{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("submission payload: unsupported scan type %T", src)
	}

	if len(raw) == 0 {
		*p = SubmissionPayload{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// PhotoPaths returns the staged blob paths currently held by the payload.
func (p SubmissionPayload) PhotoPaths() []string {
	paths := make([]string, 0, len(p.Photos))
	for _, photo := range p.Photos {
		if photo.Path != "" {
			paths = append(paths, photo.Path)
		}
	}
	return paths
}
