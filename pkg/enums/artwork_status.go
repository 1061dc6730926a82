package enums

import "fmt"

// ArtworkStatus describes the public visibility state of an artwork record.
type ArtworkStatus string

const (
	ArtworkStatusPending  ArtworkStatus = "pending"
	ArtworkStatusApproved ArtworkStatus = "approved"
	ArtworkStatusRejected ArtworkStatus = "rejected"
)

var validArtworkStatuses = []ArtworkStatus{
	ArtworkStatusPending,
	ArtworkStatusApproved,
	ArtworkStatusRejected,
}

// String returns the literal string for the status.
func (s ArtworkStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ArtworkStatus) IsValid() bool {
	for _, candidate := range validArtworkStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseArtworkStatus converts raw input into an ArtworkStatus.
func ParseArtworkStatus(value string) (ArtworkStatus, error) {
	for _, candidate := range validArtworkStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid artwork status %q", value)
}
