package submissions

import (
	"time"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// ListParams scopes a submitter-facing listing.
type ListParams struct {
	SubmitterKey string
	Status       enums.SubmissionStatus
	pkgpagination.Params
}

// ListResult is one page of submissions plus the cursor for the next page.
type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

// ListItem is the submitter-facing projection of a submission.
type ListItem struct {
	ID              uuid.UUID               `json:"id"`
	SubmissionType  enums.SubmissionType    `json:"submission_type"`
	TargetArtworkID *uuid.UUID              `json:"target_artwork_id,omitempty"`
	Payload         types.SubmissionPayload `json:"payload"`
	Status          enums.SubmissionStatus  `json:"status"`
	ModeratorNotes  *string                 `json:"moderator_notes,omitempty"`
	ReviewedAt      *time.Time              `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// SubmitOutput reports the stored submission plus any per-photo staging
// failures the intake tolerated.
type SubmitOutput struct {
	Submission    *models.Submission `json:"submission"`
	PhotoFailures []photos.Failure   `json:"photo_failures,omitempty"`
}

type listQuery struct {
	status         enums.SubmissionStatus
	submitterKey   string
	submissionType enums.SubmissionType
	limit          int
	cursor         *pkgpagination.Cursor
}

func toListItem(m models.Submission) ListItem {
	return ListItem{
		ID:              m.ID,
		SubmissionType:  m.SubmissionType,
		TargetArtworkID: m.TargetArtworkID,
		Payload:         m.Payload,
		Status:          m.Status,
		ModeratorNotes:  m.ModeratorNotes,
		ReviewedAt:      m.ReviewedAt,
		CreatedAt:       m.CreatedAt,
	}
}
