package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbtypes "github.com/openartmap/openartmap-backend/pkg/db/types"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS audit_log_entries (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  moderator_id TEXT NOT NULL,
  decision TEXT NOT NULL,
  target_id TEXT NOT NULL,
  reason TEXT,
  metadata TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRecordAppendsEntry(t *testing.T) {
	db := setupAuditTestDB(t)
	recorder := NewRecorder(db)
	ctx := context.Background()

	moderatorID := uuid.New()
	targetID := uuid.New()

	entry, err := recorder.Record(ctx, moderatorID, enums.DecisionRejected, targetID,
		"duplicate of an approved artwork", dbtypes.TagMap{"submission_type": "new_artwork"})
	require.NoError(t, err)
	assert.Equal(t, moderatorID, entry.ModeratorID)

	entries, err := recorder.ListForTarget(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.DecisionRejected, entries[0].Decision)
	assert.Equal(t, "duplicate of an approved artwork", entries[0].Reason)
	assert.Equal(t, "new_artwork", entries[0].Metadata["submission_type"])
}

func TestRecordDefaultsNilMetadata(t *testing.T) {
	db := setupAuditTestDB(t)
	recorder := NewRecorder(db)

	targetID := uuid.New()
	entry, err := recorder.Record(context.Background(), uuid.New(), enums.DecisionApproved, targetID, "", nil)
	require.NoError(t, err)
	assert.NotNil(t, entry.Metadata)
}

func TestRecordValidatesInputs(t *testing.T) {
	db := setupAuditTestDB(t)
	recorder := NewRecorder(db)
	ctx := context.Background()

	tests := []struct {
		name        string
		moderatorID uuid.UUID
		decision    enums.Decision
		targetID    uuid.UUID
	}{
		{"missing moderator", uuid.Nil, enums.DecisionApproved, uuid.New()},
		{"missing target", uuid.New(), enums.DecisionApproved, uuid.Nil},
		{"bad decision", uuid.New(), enums.Decision("escalated"), uuid.New()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := recorder.Record(ctx, tc.moderatorID, tc.decision, tc.targetID, "", nil)
			require.Error(t, err)
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
		})
	}
}

func TestListForTargetNewestFirst(t *testing.T) {
	db := setupAuditTestDB(t)
	recorder := NewRecorder(db)
	ctx := context.Background()

	targetID := uuid.New()
	_, err := recorder.Record(ctx, uuid.New(), enums.DecisionRejected, targetID, "first pass", nil)
	require.NoError(t, err)
	_, err = recorder.Record(ctx, uuid.New(), enums.DecisionApproved, targetID, "resubmitted with consent", nil)
	require.NoError(t, err)

	entries, err := recorder.ListForTarget(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
