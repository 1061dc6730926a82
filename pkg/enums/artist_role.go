package enums

import "fmt"

// ArtistRole qualifies the artist-to-artwork link.
type ArtistRole string

const (
	ArtistRolePrimary      ArtistRole = "primary"
	ArtistRoleCollaborator ArtistRole = "collaborator"
	ArtistRoleAttributed   ArtistRole = "attributed"
)

var validArtistRoles = []ArtistRole{
	ArtistRolePrimary,
	ArtistRoleCollaborator,
	ArtistRoleAttributed,
}

// String returns the literal string for the role.
func (r ArtistRole) String() string {
	return string(r)
}

// IsValid reports whether the role is known.
func (r ArtistRole) IsValid() bool {
	for _, candidate := range validArtistRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseArtistRole converts raw input into an ArtistRole.
func ParseArtistRole(value string) (ArtistRole, error) {
	for _, candidate := range validArtistRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid artist role %q", value)
}
