package enums

import "fmt"

// ConsentContentType names the kind of content a consent record is tied to.
type ConsentContentType string

const (
	ConsentContentSubmission ConsentContentType = "submission"
	ConsentContentArtwork    ConsentContentType = "artwork"
	ConsentContentArtist     ConsentContentType = "artist"
)

var validConsentContentTypes = []ConsentContentType{
	ConsentContentSubmission,
	ConsentContentArtwork,
	ConsentContentArtist,
}

// String returns the literal string for the content type.
func (c ConsentContentType) String() string {
	return string(c)
}

// IsValid reports whether the content type is known.
func (c ConsentContentType) IsValid() bool {
	for _, candidate := range validConsentContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConsentContentType converts raw input into a ConsentContentType.
func ParseConsentContentType(value string) (ConsentContentType, error) {
	for _, candidate := range validConsentContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consent content type %q", value)
}
