package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func mustGenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func testClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient:    srv.Client(),
		defaultBucket: "bucket",
		tokenSource:   &tokenSource{token: "test-token", expiry: time.Now().Add(time.Hour)},
		apiBase:       srv.URL,
	}
}

func TestSignedURLSuccess(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := &Client{
		defaultBucket: "bucket",
		serviceAccount: &serviceAccountInfo{
			clientEmail: "signer@example.com",
			privateKey:  key,
		},
	}

	object := "staged/ab12cd34.jpg"
	contentType := "image/jpeg"
	urlStr, err := client.SignedURL("bucket", object, contentType, 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL returned error: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}

	if !strings.EqualFold(parsed.Host, "storage.googleapis.com") {
		t.Fatalf("unexpected host %s", parsed.Host)
	}

	values := parsed.Query()
	got := values.Get("GoogleAccessId")
	got, err = url.QueryUnescape(got)
	if err != nil {
		t.Fatalf("unescape GoogleAccessId: %v", err)
	}
	if got != "signer@example.com" {
		t.Fatalf("unexpected GoogleAccessId %q", got)
	}

	expireParam := values.Get("Expires")
	if expireParam == "" {
		t.Fatalf("Expires missing")
	}
	expiration, err := strconv.ParseInt(expireParam, 10, 64)
	if err != nil {
		t.Fatalf("parse expires: %v", err)
	}
	expireParam = strconv.FormatInt(expiration, 10)

	signature := values.Get("Signature")
	if signature == "" {
		t.Fatalf("signature missing")
	}

	data := []byte("PUT\n\n" + contentType + "\n" + expireParam + "\n/" + "bucket" + "/" + object)
	hash := sha256.Sum256(data)

	signature, err = url.QueryUnescape(signature)
	if err != nil {
		t.Fatalf("unescape signature: %v", err)
	}
	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
}

func TestSignedReadURLSuccess(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := &Client{
		defaultBucket: "bucket",
		serviceAccount: &serviceAccountInfo{
			clientEmail: "signer@example.com",
			privateKey:  key,
		},
	}

	object := "artworks/ab12cd34.jpg"
	urlStr, err := client.SignedReadURL("bucket", object, 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedReadURL returned error: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed read url: %v", err)
	}

	values := parsed.Query()
	expireParam := values.Get("Expires")
	if expireParam == "" {
		t.Fatal("Expires missing")
	}
	expiration, err := strconv.ParseInt(expireParam, 10, 64)
	if err != nil {
		t.Fatalf("parse expires: %v", err)
	}
	expireParam = strconv.FormatInt(expiration, 10)
	signature := values.Get("Signature")
	if signature == "" {
		t.Fatal("signature missing")
	}

	data := []byte("GET\n\n\n" + expireParam + "\n/" + "bucket" + "/" + object)
	hash := sha256.Sum256(data)

	signature = strings.ReplaceAll(signature, " ", "+") // critical line

	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify read signature: %v", err)
	}
}

func TestSignedURLErrors(t *testing.T) {
	t.Parallel()

	client := &Client{
		serviceAccount: &serviceAccountInfo{
			clientEmail: "test@example.com",
			privateKey:  mustGenerateKey(t),
		},
		defaultBucket: "bucket",
	}

	cases := []struct {
		name              string
		bucket            string
		object            string
		contentType       string
		expires           time.Duration
		forceClearDefault bool
	}{
		{"missing bucket", "", "object", "image/png", time.Minute, true},
		{"missing object", "bucket", "", "image/png", time.Minute, false},
		{"missing contentType", "bucket", "object", "", time.Minute, false},
		{"negative ttl", "bucket", "object", "image/png", -time.Minute, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			origBucket := client.defaultBucket
			if tc.forceClearDefault {
				client.defaultBucket = ""
			}
			defer func() {
				client.defaultBucket = origBucket
			}()
			if _, err := client.SignedURL(tc.bucket, tc.object, tc.contentType, tc.expires); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}

	emptyClient := &Client{}
	if _, err := emptyClient.SignedURL("", "object", "image/png", time.Minute); err == nil {
		t.Fatal("expected error for client without credentials")
	}
}

func TestUploadAndDownload(t *testing.T) {
	t.Parallel()

	var stored []byte
	var storedType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/bucket/o"):
			if r.URL.Query().Get("name") != "staged/photo.jpg" {
				t.Errorf("unexpected object name %q", r.URL.Query().Get("name"))
			}
			stored, _ = io.ReadAll(r.Body)
			storedType = r.Header.Get("Content-Type")
			_, _ = w.Write([]byte(`{"name":"staged/photo.jpg"}`))
		case r.Method == http.MethodGet && r.URL.EscapedPath() == "/storage/v1/b/bucket/o/staged%2Fphoto.jpg":
			w.Header().Set("Content-Type", storedType)
			_, _ = w.Write(stored)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := testClient(srv)
	ctx := context.Background()

	payload := []byte("jpeg bytes")
	if err := client.Upload(ctx, "", "staged/photo.jpg", "image/jpeg", payload); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	data, contentType, err := client.Download(ctx, "", "staged/photo.jpg")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("downloaded %q, want %q", data, payload)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", contentType)
	}
}

func TestDownloadNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(srv)
	_, _, err := client.Download(context.Background(), "", "staged/missing.jpg")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.EscapedPath() != "/storage/v1/b/bucket/o/staged%2Fphoto.jpg" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := testClient(srv)
	if err := client.Delete(context.Background(), "", "staged/photo.jpg"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !deleted {
		t.Fatal("delete request never reached server")
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/storage/v1/b/bucket/o/artworks%2Fpresent.jpg" {
			_, _ = w.Write([]byte(`{"name":"artworks/present.jpg"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(srv)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "", "artworks/present.jpg")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected object to exist")
	}

	ok, err = client.Exists(ctx, "", "artworks/absent.jpg")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if ok {
		t.Fatal("expected object to be missing")
	}
}

func TestRewriteLoopsUntilDone(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/rewriteTo/b/bucket/o/") {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		calls++
		if calls == 1 {
			if r.URL.Query().Get("rewriteToken") != "" {
				t.Error("first call should not carry a rewrite token")
			}
			_, _ = w.Write([]byte(`{"done":false,"rewriteToken":"tok-1"}`))
			return
		}
		if got := r.URL.Query().Get("rewriteToken"); got != "tok-1" {
			t.Errorf("unexpected rewrite token %q", got)
		}
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	client := testClient(srv)
	err := client.Rewrite(context.Background(), "", "staged/photo.jpg", "", "artworks/photo.jpg")
	if err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 rewrite calls, got %d", calls)
	}
}
