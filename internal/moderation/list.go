package moderation

import (
	"time"

	"github.com/google/uuid"

	"github.com/openartmap/openartmap-backend/internal/photos"
	"github.com/openartmap/openartmap-backend/internal/similarity"
	"github.com/openartmap/openartmap-backend/pkg/db/models"
	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgpagination "github.com/openartmap/openartmap-backend/pkg/pagination"
	"github.com/openartmap/openartmap-backend/pkg/types"
)

// ListParams scopes the review queue listing.
type ListParams struct {
	SubmissionType enums.SubmissionType
	pkgpagination.Params
}

// ListResult is one page of the review queue.
type ListResult struct {
	Items  []QueueItem `json:"items"`
	Cursor string      `json:"cursor"`
}

// QueueItem is the moderator-facing projection of a pending submission.
type QueueItem struct {
	ID              uuid.UUID               `json:"id"`
	SubmissionType  enums.SubmissionType    `json:"submission_type"`
	SubmitterKey    string                  `json:"submitter_key"`
	TargetArtworkID *uuid.UUID              `json:"target_artwork_id,omitempty"`
	Payload         types.SubmissionPayload `json:"payload"`
	SimilarityLevel string                  `json:"similarity_level,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// ReviewDetail is one submission with its decoded similarity context.
type ReviewDetail struct {
	Submission *models.Submission `json:"submission"`
	Similarity *similarity.Result `json:"similarity,omitempty"`
}

// ApproveInput carries a moderator's approval decision. LinkArtworkID
// resolves a new-artwork submission into an existing artwork instead of
// creating one; Overrides let the moderator correct payload fields at
// approval time. Both apply only to artwork-creating submission types.
type ApproveInput struct {
	Notes         string
	LinkArtworkID *uuid.UUID
	Overrides     *FieldOverrides
}

// FieldOverrides are moderator-supplied replacements for payload fields.
// Nil pointers leave the submitted value alone; Tags merge over the
// submitted tag map.
type FieldOverrides struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Location    *types.GeographyPoint `json:"location,omitempty"`
	Tags        dbtypes.TagMap        `json:"tags,omitempty"`
}

func (o *FieldOverrides) empty() bool {
	return o == nil || (o.Title == nil && o.Description == nil && o.Location == nil && len(o.Tags) == 0)
}

// ReviewOutcome reports one decision.
type ReviewOutcome struct {
	Submission    *models.Submission `json:"submission"`
	ArtworkID     *uuid.UUID         `json:"artwork_id,omitempty"`
	ArtistID      *uuid.UUID         `json:"artist_id,omitempty"`
	PhotoFailures []photos.Failure   `json:"photo_failures,omitempty"`
}

// BatchItem is one entry of a batch review request.
type BatchItem struct {
	SubmissionID uuid.UUID      `json:"submission_id"`
	Action       enums.Decision `json:"action"`
	Reason       string         `json:"reason,omitempty"`
}

// BatchItemError reports one failed batch entry.
type BatchItemError struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Error        string    `json:"error"`
}

// BatchResult reports the per-item breakdown of a batch review.
type BatchResult struct {
	Approved int              `json:"approved"`
	Rejected int              `json:"rejected"`
	Errors   []BatchItemError `json:"errors,omitempty"`
}
