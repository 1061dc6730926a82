package security_test

import (
	"testing"

	"github.com/openartmap/openartmap-backend/pkg/security"
)

func TestHashAndVerifyImportToken(t *testing.T) {
	hash, err := security.HashImportToken("aggregator-feed-token")
	if err != nil {
		t.Fatalf("HashImportToken returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashImportToken returned empty string")
	}

	ok, err := security.VerifyImportToken("aggregator-feed-token", hash)
	if err != nil {
		t.Fatalf("VerifyImportToken returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyImportToken failed for the correct token")
	}

	ok, err = security.VerifyImportToken("bogus-token", hash)
	if err != nil {
		t.Fatalf("VerifyImportToken returned error for wrong token: %v", err)
	}
	if ok {
		t.Fatal("VerifyImportToken returned true for incorrect token")
	}
}

func TestVerifyImportTokenRejectsMalformedHash(t *testing.T) {
	if _, err := security.VerifyImportToken("anything", "not-a-hash"); err == nil {
		t.Fatal("expected malformed hash to return an error")
	}
}

func TestGenerateImportToken(t *testing.T) {
	token, err := security.GenerateImportToken(32)
	if err != nil {
		t.Fatalf("GenerateImportToken returned error: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32 characters, got %d", len(token))
	}

	if _, err := security.GenerateImportToken(0); err == nil {
		t.Fatal("expected non-positive length to fail")
	}
}
