package enums

import "fmt"

// SubmissionType distinguishes the intake shapes that collapse into the
// canonical submission record.
type SubmissionType string

const (
	SubmissionTypeNewArtwork     SubmissionType = "new_artwork"
	SubmissionTypeEditArtwork    SubmissionType = "edit_artwork"
	SubmissionTypeAdditionalInfo SubmissionType = "additional_info"
	SubmissionTypeBulkArtwork    SubmissionType = "bulk_artwork"
	SubmissionTypeBulkArtist     SubmissionType = "bulk_artist"
)

var validSubmissionTypes = []SubmissionType{
	SubmissionTypeNewArtwork,
	SubmissionTypeEditArtwork,
	SubmissionTypeAdditionalInfo,
	SubmissionTypeBulkArtwork,
	SubmissionTypeBulkArtist,
}

// String returns the literal string for the type.
func (s SubmissionType) String() string {
	return string(s)
}

// IsValid reports whether the type is known.
func (s SubmissionType) IsValid() bool {
	for _, candidate := range validSubmissionTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// CreatesArtwork reports whether approval of this type mints a new artwork
// rather than mutating an existing one.
func (s SubmissionType) CreatesArtwork() bool {
	return s == SubmissionTypeNewArtwork || s == SubmissionTypeBulkArtwork
}

// RequiresTarget reports whether the type must reference an existing artwork.
func (s SubmissionType) RequiresTarget() bool {
	return s == SubmissionTypeEditArtwork || s == SubmissionTypeAdditionalInfo
}

// ParseSubmissionType converts raw input into a SubmissionType.
func ParseSubmissionType(value string) (SubmissionType, error) {
	for _, candidate := range validSubmissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission type %q", value)
}
