package artworks

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openartmap/openartmap-backend/internal/validation"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// Editable fields an approved edit submission may rewrite. Anything else in
// the diff is rejected rather than silently dropped.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldTags        = "tags"
)

// ApplyDiff rewrites artwork fields from an edit diff. It validates every
// changed field first and applies nothing when any of them fails, so a
// half-edited artwork can never be persisted.
func ApplyDiff(artwork *models.Artwork, diff types.FieldDiff) error {
	if len(diff) == 0 {
		return nil
	}

	staged := *artwork
	var fieldErrs validation.FieldErrors

	for field, change := range diff {
		switch field {
		case FieldTitle:
			title, err := stringValue(change.New)
			if err != nil {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeInvalidValue, Message: err.Error(),
				})
				continue
			}
			title = validation.SanitizeMarkup(strings.TrimSpace(title))
			if title == "" {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeRequired, Message: "title cannot be cleared",
				})
				continue
			}
			if utf8.RuneCountInString(title) > validation.TitleMaxLen {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeTooLong,
					Message: fmt.Sprintf("title exceeds %d characters", validation.TitleMaxLen),
				})
				continue
			}
			staged.Title = title

		case FieldDescription:
			desc, err := stringValue(change.New)
			if err != nil {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeInvalidValue, Message: err.Error(),
				})
				continue
			}
			desc = validation.SanitizeMarkup(strings.TrimSpace(desc))
			if utf8.RuneCountInString(desc) > validation.DescriptionMaxLen {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeTooLong,
					Message: fmt.Sprintf("description exceeds %d characters", validation.DescriptionMaxLen),
				})
				continue
			}
			staged.Description = desc

		case FieldLocation:
			point, err := pointValue(change.New)
			if err != nil {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeInvalidValue, Message: err.Error(),
				})
				continue
			}
			if ferr := validation.ValidateCoordinates(point.Lat, point.Lng); ferr != nil {
				ferr.Field = field
				fieldErrs = append(fieldErrs, *ferr)
				continue
			}
			staged.Location = point

		case FieldTags:
			tags, err := tagValue(change.New)
			if err != nil {
				fieldErrs = append(fieldErrs, validation.FieldError{
					Field: field, Code: validation.ErrCodeInvalidValue, Message: err.Error(),
				})
				continue
			}
			normalized, tagErrs := validation.NormalizeTags(tags)
			if len(tagErrs) > 0 {
				fieldErrs = append(fieldErrs, tagErrs...)
				continue
			}
			staged.Tags = staged.Tags.Merge(normalized)

		default:
			fieldErrs = append(fieldErrs, validation.FieldError{
				Field: field, Code: validation.ErrCodeInvalidValue,
				Message: "field is not editable",
			})
		}
	}

	if err := fieldErrs.AsError(); err != nil {
		return err
	}

	*artwork = staged
	return nil
}

// MergePhotos unions promoted photo paths into the artwork, preserving the
// existing order. Re-applying the same set is a no-op.
func MergePhotos(artwork *models.Artwork, photos []string) {
	artwork.Photos = artwork.Photos.Union(photos)
}

func stringValue(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string value, got %T", v)
	}
	return s, nil
}

// pointValue accepts the JSON object shape the diff carries after a
// round-trip through JSONB, plus a typed point from in-process callers.
func pointValue(v any) (types.GeographyPoint, error) {
	switch p := v.(type) {
	case types.GeographyPoint:
		return p, nil
	case *types.GeographyPoint:
		if p == nil {
			return types.GeographyPoint{}, fmt.Errorf("location cannot be null")
		}
		return *p, nil
	case map[string]any:
		raw, err := json.Marshal(p)
		if err != nil {
			return types.GeographyPoint{}, err
		}
		var point types.GeographyPoint
		if err := json.Unmarshal(raw, &point); err != nil {
			return types.GeographyPoint{}, fmt.Errorf("expected {lat, lng} object: %w", err)
		}
		return point, nil
	default:
		return types.GeographyPoint{}, fmt.Errorf("expected {lat, lng} object, got %T", v)
	}
}

func tagValue(v any) (dbtypes.TagMap, error) {
	switch t := v.(type) {
	case dbtypes.TagMap:
		return t, nil
	case map[string]any:
		return dbtypes.TagMap(t), nil
	default:
		return nil, fmt.Errorf("expected a tag object, got %T", v)
	}
}
