package consent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openartmap/openartmap-backend/pkg/db/models"
	"github.com/openartmap/openartmap-backend/pkg/enums"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
)

func setupConsentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS consent_records (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  anon_token TEXT,
  content_type TEXT NOT NULL,
  content_id TEXT NOT NULL,
  consent_version TEXT NOT NULL,
  ip_address TEXT,
  text_hash TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newConsentRecord(userID *uuid.UUID, anonToken *string, contentID uuid.UUID) *models.ConsentRecord {
	return &models.ConsentRecord{
		ID:             uuid.New(),
		UserID:         userID,
		AnonToken:      anonToken,
		ContentType:    enums.ConsentContentSubmission,
		ContentID:      contentID,
		ConsentVersion: "2025-08-01",
		IPAddress:      "203.0.113.7",
		TextHash:       HashConsentText("I grant a non-exclusive license to display this photo."),
	}
}

func TestRecordAppendsForUser(t *testing.T) {
	db := setupConsentTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	userID := uuid.New()
	submissionID := uuid.New()

	saved, err := ledger.Record(ctx, newConsentRecord(&userID, nil, submissionID))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	records, err := ledger.ListForContent(ctx, enums.ConsentContentSubmission, submissionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, userID, *records[0].UserID)
}

func TestRecordAppendsForAnonToken(t *testing.T) {
	db := setupConsentTestDB(t)
	ledger := NewLedger(db)

	token := "anon-7f3a"
	_, err := ledger.Record(context.Background(), newConsentRecord(nil, &token, uuid.New()))
	require.NoError(t, err)
}

func TestRecordRejectsBadSubjects(t *testing.T) {
	db := setupConsentTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	userID := uuid.New()
	token := "anon-7f3a"

	tests := []struct {
		name   string
		record *models.ConsentRecord
	}{
		{"no subject", newConsentRecord(nil, nil, uuid.New())},
		{"both subjects", newConsentRecord(&userID, &token, uuid.New())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Record(ctx, tc.record)
			require.Error(t, err)
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
		})
	}
}

func TestRecordRejectsMissingVersionAndHash(t *testing.T) {
	db := setupConsentTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.New()

	missingVersion := newConsentRecord(&userID, nil, uuid.New())
	missingVersion.ConsentVersion = ""
	_, err := ledger.Record(ctx, missingVersion)
	require.Error(t, err)

	missingHash := newConsentRecord(&userID, nil, uuid.New())
	missingHash.TextHash = ""
	_, err = ledger.Record(ctx, missingHash)
	require.Error(t, err)
}

func TestRepointMovesSubmissionRecords(t *testing.T) {
	db := setupConsentTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	userID := uuid.New()
	submissionID := uuid.New()
	artworkID := uuid.New()
	otherSubmissionID := uuid.New()

	_, err := ledger.Record(ctx, newConsentRecord(&userID, nil, submissionID))
	require.NoError(t, err)
	_, err = ledger.Record(ctx, newConsentRecord(&userID, nil, otherSubmissionID))
	require.NoError(t, err)

	require.NoError(t, ledger.Repoint(ctx, submissionID, artworkID))

	moved, err := ledger.ListForContent(ctx, enums.ConsentContentArtwork, artworkID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, enums.ConsentContentArtwork, moved[0].ContentType)

	// Records for other submissions are untouched.
	untouched, err := ledger.ListForContent(ctx, enums.ConsentContentSubmission, otherSubmissionID)
	require.NoError(t, err)
	require.Len(t, untouched, 1)

	// Fields other than the content pointer survive the repoint.
	assert.Equal(t, "2025-08-01", moved[0].ConsentVersion)
	assert.NotEmpty(t, moved[0].TextHash)
}

func TestHashConsentTextIsStable(t *testing.T) {
	a := HashConsentText("license v1")
	b := HashConsentText("license v1")
	c := HashConsentText("license v2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
