package validation

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

const (
	TitleMaxLen       = 200
	DescriptionMaxLen = 10000
	NoteMaxLen        = 500

	// CustomTagPrefix is the documented escape hatch for tags outside the
	// controlled vocabulary.
	CustomTagPrefix = "custom:"
)

// Distinct per-field error codes surfaced to callers.
const (
	ErrCodeRequired        = "required"
	ErrCodeOutOfRange      = "out_of_range"
	ErrCodeZeroCoordinates = "zero_coordinates"
	ErrCodeTooLong         = "too_long"
	ErrCodeInvalidURL      = "invalid_url"
	ErrCodeUnknownTag      = "unknown_tag"
	ErrCodeInvalidValue    = "invalid_value"
	ErrCodeTooManyPhotos   = "too_many_photos"
)

// FieldError pins a validation failure to the offending field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors aggregates every failure found in one pass so callers see
// the full list instead of fixing one field at a time.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(parts, "; ")
}

// AsError converts the collected failures into the shared coded error type.
func (e FieldErrors) AsError() *pkgerrors.Error {
	if len(e) == 0 {
		return nil
	}
	details := make(map[string]string, len(e))
	for _, fe := range e {
		details[fe.Field] = fe.Message
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// tagVocabulary is the controlled set of tag keys accepted without the
// custom prefix. numericTags lists the keys whose values are coerced to
// numbers.
var (
	tagVocabulary = map[string]struct{}{
		"artist_name":  {},
		"material":     {},
		"medium":       {},
		"style":        {},
		"subject":      {},
		"condition":    {},
		"artwork_type": {},
		"year":         {},
		"city":         {},
		"country":      {},
	}
	numericTags = map[string]struct{}{
		"year": {},
	}
)

var (
	scriptRe  = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	iframeRe  = regexp.MustCompile(`(?is)<\s*iframe[^>]*>.*?<\s*/\s*iframe\s*>|<\s*iframe[^>]*/?\s*>`)
	handlerRe = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
)

// Validator normalizes raw submission payloads against intake policy.
type Validator struct {
	maxPhotos int
}

// New builds a validator; maxPhotos caps the photo list per submission.
func New(maxPhotos int) *Validator {
	if maxPhotos <= 0 {
		maxPhotos = 10
	}
	return &Validator{maxPhotos: maxPhotos}
}

// MaxPhotos reports the configured photo cap.
func (v *Validator) MaxPhotos() int {
	return v.maxPhotos
}

// NormalizePayload validates and normalizes a payload in one pass. On any
// failure it returns the zero payload and the full error list; a payload is
// never partially normalized.
func (v *Validator) NormalizePayload(in types.SubmissionPayload) (types.SubmissionPayload, FieldErrors) {
	var errs FieldErrors
	out := in

	if in.Location != nil {
		if fe := ValidateCoordinates(in.Location.Lat, in.Location.Lng); fe != nil {
			errs = append(errs, *fe)
		}
	}

	out.Title = SanitizeMarkup(strings.TrimSpace(in.Title))
	if utf8.RuneCountInString(out.Title) > TitleMaxLen {
		errs = append(errs, FieldError{Field: "title", Code: ErrCodeTooLong,
			Message: fmt.Sprintf("must be at most %d characters", TitleMaxLen)})
	}

	out.Description = SanitizeMarkup(strings.TrimSpace(in.Description))
	if utf8.RuneCountInString(out.Description) > DescriptionMaxLen {
		errs = append(errs, FieldError{Field: "description", Code: ErrCodeTooLong,
			Message: fmt.Sprintf("must be at most %d characters", DescriptionMaxLen)})
	}

	out.Note = SanitizeMarkup(strings.TrimSpace(in.Note))
	if utf8.RuneCountInString(out.Note) > NoteMaxLen {
		errs = append(errs, FieldError{Field: "note", Code: ErrCodeTooLong,
			Message: fmt.Sprintf("must be at most %d characters", NoteMaxLen)})
	}

	if in.SourceURL != "" {
		if fe := ValidateURL("source_url", in.SourceURL); fe != nil {
			errs = append(errs, *fe)
		}
	}

	tags, tagErrs := NormalizeTags(in.Tags)
	if len(tagErrs) > 0 {
		errs = append(errs, tagErrs...)
	} else {
		out.Tags = tags
	}

	photos, photoErrs := v.normalizePhotos(in.Photos)
	if len(photoErrs) > 0 {
		errs = append(errs, photoErrs...)
	} else {
		out.Photos = photos
	}

	if len(errs) > 0 {
		return types.SubmissionPayload{}, errs
	}
	return out, nil
}

// ValidateCoordinates range-checks a lat/lng pair. The exact pair (0,0) is
// rejected with its own code: feeds that lack a location emit it instead of
// omitting the field, and no public artwork floats in the Gulf of Guinea.
func ValidateCoordinates(lat, lng float64) *FieldError {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return &FieldError{Field: "location", Code: ErrCodeOutOfRange, Message: "coordinates must be finite"}
	}
	if lat < -90 || lat > 90 {
		return &FieldError{Field: "location.lat", Code: ErrCodeOutOfRange, Message: "latitude must be within [-90, 90]"}
	}
	if lng < -180 || lng > 180 {
		return &FieldError{Field: "location.lng", Code: ErrCodeOutOfRange, Message: "longitude must be within [-180, 180]"}
	}
	if lat == 0 && lng == 0 {
		return &FieldError{Field: "location", Code: ErrCodeZeroCoordinates, Message: "coordinates (0,0) indicate missing location data"}
	}
	return nil
}

// ValidateURL accepts only well-formed absolute http/https URLs.
func ValidateURL(field, raw string) *FieldError {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return &FieldError{Field: field, Code: ErrCodeInvalidURL, Message: "must be a valid absolute URL"}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &FieldError{Field: field, Code: ErrCodeInvalidURL, Message: "scheme must be http or https"}
	}
	return nil
}

// SanitizeMarkup strips executable markup while leaving markdown intact.
func SanitizeMarkup(input string) string {
	if input == "" {
		return input
	}
	out := scriptRe.ReplaceAllString(input, "")
	out = iframeRe.ReplaceAllString(out, "")
	out = handlerRe.ReplaceAllString(out, "")
	return out
}

// NormalizeTags enforces the controlled vocabulary, permits prefixed custom
// tags, and coerces known numeric tags. Keys are lowercased.
func NormalizeTags(in dbtypes.TagMap) (dbtypes.TagMap, FieldErrors) {
	if len(in) == 0 {
		return dbtypes.TagMap{}, nil
	}

	var errs FieldErrors
	out := make(dbtypes.TagMap, len(in))
	for rawKey, rawValue := range in {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		if key == "" {
			errs = append(errs, FieldError{Field: "tags", Code: ErrCodeInvalidValue, Message: "tag keys must not be empty"})
			continue
		}

		_, known := tagVocabulary[key]
		if !known && !strings.HasPrefix(key, CustomTagPrefix) {
			errs = append(errs, FieldError{Field: "tags." + key, Code: ErrCodeUnknownTag,
				Message: fmt.Sprintf("unknown tag key; use the %q prefix for free-form tags", CustomTagPrefix)})
			continue
		}

		if _, numeric := numericTags[key]; numeric {
			coerced, err := coerceNumeric(rawValue)
			if err != nil {
				errs = append(errs, FieldError{Field: "tags." + key, Code: ErrCodeInvalidValue, Message: "must be a number"})
				continue
			}
			out[key] = coerced
			continue
		}

		switch v := rawValue.(type) {
		case string:
			out[key] = SanitizeMarkup(strings.TrimSpace(v))
		case float64, int, int64, bool:
			out[key] = v
		default:
			errs = append(errs, FieldError{Field: "tags." + key, Code: ErrCodeInvalidValue, Message: "must be a string or number"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (v *Validator) normalizePhotos(in []types.PhotoRef) ([]types.PhotoRef, FieldErrors) {
	if len(in) == 0 {
		return nil, nil
	}
	if len(in) > v.maxPhotos {
		return nil, FieldErrors{{Field: "photos", Code: ErrCodeTooManyPhotos,
			Message: fmt.Sprintf("at most %d photos per submission", v.maxPhotos)}}
	}

	var errs FieldErrors
	out := make([]types.PhotoRef, 0, len(in))
	for i, ref := range in {
		field := fmt.Sprintf("photos[%d]", i)
		if ref.URL == "" && ref.Path == "" {
			errs = append(errs, FieldError{Field: field, Code: ErrCodeRequired, Message: "photo url or path is required"})
			continue
		}
		if ref.URL != "" {
			if fe := ValidateURL(field+".url", ref.URL); fe != nil {
				errs = append(errs, *fe)
				continue
			}
		}
		ref.Caption = SanitizeMarkup(strings.TrimSpace(ref.Caption))
		ref.Credit = SanitizeMarkup(strings.TrimSpace(ref.Credit))
		out = append(out, ref)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func coerceNumeric(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", value)
	}
}
