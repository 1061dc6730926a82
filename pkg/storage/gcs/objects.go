package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("gcs: object not found")

const maxObjectBytes = 64 << 20

// Upload stores data as object in bucket via the JSON API media upload.
// An empty bucket selects the client's default bucket.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("gcs: object name is required")
	}

	u := fmt.Sprintf(
		"%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		c.baseURL(), url.PathEscape(bucket), url.QueryEscape(object),
	)

	req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return checkObjectResponse(resp, "upload")
}

// Download fetches the object's content and reported content type.
func (c *Client) Download(ctx context.Context, bucket, object string) ([]byte, string, error) {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return nil, "", err
	}
	if object == "" {
		return nil, "", errors.New("gcs: object name is required")
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		c.baseURL(), url.PathEscape(bucket), url.PathEscape(object),
	)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkObjectResponse(resp, "download"); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Delete removes the object. Deleting a missing object returns
// ErrObjectNotFound.
func (c *Client) Delete(ctx context.Context, bucket, object string) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("gcs: object name is required")
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		c.baseURL(), url.PathEscape(bucket), url.PathEscape(object),
	)

	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return checkObjectResponse(resp, "delete")
}

// Exists reports whether the object is present in the bucket.
func (c *Client) Exists(ctx context.Context, bucket, object string) (bool, error) {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return false, err
	}
	if object == "" {
		return false, errors.New("gcs: object name is required")
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		c.baseURL(), url.PathEscape(bucket), url.PathEscape(object),
	)

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, objectError(resp, "stat")
	}
}

// Rewrite copies srcObject to dstObject server side, looping on the
// rewrite token until the copy completes.
func (c *Client) Rewrite(ctx context.Context, srcBucket, srcObject, dstBucket, dstObject string) error {
	srcBucket, err := c.resolveBucket(srcBucket)
	if err != nil {
		return err
	}
	dstBucket, err = c.resolveBucket(dstBucket)
	if err != nil {
		return err
	}
	if srcObject == "" || dstObject == "" {
		return errors.New("gcs: object name is required")
	}

	base := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s/rewriteTo/b/%s/o/%s",
		c.baseURL(),
		url.PathEscape(srcBucket), url.PathEscape(srcObject),
		url.PathEscape(dstBucket), url.PathEscape(dstObject),
	)

	rewriteToken := ""
	for {
		u := base
		if rewriteToken != "" {
			u += "?rewriteToken=" + url.QueryEscape(rewriteToken)
		}

		req, err := c.newRequest(ctx, http.MethodPost, u, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if err := checkObjectResponse(resp, "rewrite"); err != nil {
			_ = resp.Body.Close()
			return err
		}

		var result struct {
			Done         bool   `json:"done"`
			RewriteToken string `json:"rewriteToken"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return decodeErr
		}

		if result.Done {
			return nil
		}
		if result.RewriteToken == "" {
			return errors.New("gcs: rewrite stalled without token")
		}
		rewriteToken = result.RewriteToken
	}
}

func (c *Client) resolveBucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("gcs: bucket is required")
	}
	return bucket, nil
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	if c == nil || c.tokenSource == nil {
		return nil, errors.New("gcs client not initialized")
	}
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func checkObjectResponse(resp *http.Response, op string) error {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return objectError(resp, op)
}

func objectError(resp *http.Response, op string) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("gcs %s failed: %s: %s", op, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("gcs %s failed: %s", op, resp.Status)
}
