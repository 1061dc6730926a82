package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignedURL produces a V2 signed PUT URL for direct uploads. Requires
// service account credentials; metadata-token deployments cannot sign.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("gcs: content type is required for signed upload")
	}
	return c.signURL("PUT", bucket, object, contentType, expires)
}

// SignedReadURL produces a V2 signed GET URL for temporary read access,
// used when handing staged photos to reviewers.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return c.signURL("GET", bucket, object, "", expires)
}

func (c *Client) signURL(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", errors.New("gcs: signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("gcs: bucket is required")
	}
	if object == "" {
		return "", errors.New("gcs: object name is required")
	}
	if expires <= 0 {
		return "", errors.New("gcs: expiration must be positive")
	}

	expiresAt := time.Now().Add(expires).Unix()
	toSign := strings.Join([]string{
		method,
		"", // content MD5 not enforced
		contentType,
		strconv.FormatInt(expiresAt, 10),
		"/" + bucket + "/" + object,
	}, "\n")

	hash := sha256.Sum256([]byte(toSign))
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("gcs: signing url: %w", err)
	}

	q := url.Values{}
	q.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	q.Set("Expires", strconv.FormatInt(expiresAt, 10))
	q.Set("Signature", base64.StdEncoding.EncodeToString(sig))

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s?%s", bucket, object, q.Encode()), nil
}
