package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// Submission is the canonical unit of work for the moderation pipeline.
//
// SubmitterKey duplicates whichever of SubmitterID/AnonToken is present so the
// partial unique index on (submitter_key, target_artwork_id) can enforce the
// one-pending-edit-per-target invariant at the data layer.
type Submission struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubmissionType  enums.SubmissionType    `gorm:"column:submission_type;type:submission_type;not null"`
	SubmitterID     *uuid.UUID              `gorm:"column:submitter_id;type:uuid"`
	AnonToken       *string                 `gorm:"column:anon_token"`
	SubmitterKey    string                  `gorm:"column:submitter_key;not null"`
	TargetArtworkID *uuid.UUID              `gorm:"column:target_artwork_id;type:uuid"`
	Payload         types.SubmissionPayload `gorm:"column:payload;type:jsonb;not null"`
	Similarity      *string                 `gorm:"column:similarity"`
	Status          enums.SubmissionStatus  `gorm:"column:status;type:submission_status;not null;default:'pending'"`
	ModeratorID     *uuid.UUID              `gorm:"column:moderator_id;type:uuid"`
	ModeratorNotes  *string                 `gorm:"column:moderator_notes"`
	ReviewedAt      *time.Time              `gorm:"column:reviewed_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// PendingEditUniqueConstraint names the partial unique index behind the
// at-most-one-pending-edit invariant; intake maps its violation to a conflict.
const PendingEditUniqueConstraint = "submissions_pending_edit_unique"

// Tags returns the payload tag map, never nil.
func (s *Submission) Tags() dbtypes.TagMap {
	if s.Payload.Tags == nil {
		return dbtypes.TagMap{}
	}
	return s.Payload.Tags
}
