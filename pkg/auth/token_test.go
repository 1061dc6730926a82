package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openartmap/openartmap-backend/pkg/config"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "openartmap",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Moderator: true})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if !claims.Moderator {
		t.Fatalf("moderator capability not preserved")
	}
	if claims.ID == "" {
		t.Fatalf("expected a generated jti")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	base := config.JWTConfig{Secret: "secret", Issuer: "openartmap", ExpirationMinutes: 30}

	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
		wantErr string
	}{
		{
			name:    "missing secret",
			cfg:     config.JWTConfig{Issuer: "openartmap", ExpirationMinutes: 30},
			payload: AccessTokenPayload{UserID: uuid.New()},
			wantErr: "secret",
		},
		{
			name:    "missing issuer",
			cfg:     config.JWTConfig{Secret: "secret", ExpirationMinutes: 30},
			payload: AccessTokenPayload{UserID: uuid.New()},
			wantErr: "issuer",
		},
		{
			name:    "missing user id",
			cfg:     base,
			payload: AccessTokenPayload{},
			wantErr: "user id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 30}
	token, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	parseCfg := config.JWTConfig{Secret: "secret", Issuer: "openartmap", ExpirationMinutes: 30}
	if _, err := ParseAccessToken(parseCfg, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}
