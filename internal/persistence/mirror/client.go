// Package mirror uploads persistence artifacts (snapshots, update logs,
// weight checkpoints) to an S3-compatible bucket in the background. Uploads
// never block the update path; under saturation they are dropped and counted.
package mirror

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

const (
	sigAlgorithm = "AWS4-HMAC-SHA256"
	sigRegion    = "auto"
	sigService   = "s3"
)

// Client is a minimal SigV4 PUT-only client. It speaks to any S3-compatible
// endpoint; only the operations the mirror needs are implemented.
type Client struct {
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
	http      *http.Client
}

func NewClient(endpoint, bucket, accessKey, secretKey string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.TrimSpace(bucket) == "" ||
		strings.TrimSpace(accessKey) == "" || strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("endpoint, bucket and credentials are all required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint: %s", endpoint)
	}
	return &Client{
		endpoint:  strings.TrimRight(u.String(), "/"),
		bucket:    strings.TrimSpace(bucket),
		accessKey: strings.TrimSpace(accessKey),
		secretKey: strings.TrimSpace(secretKey),
		http:      &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// PutFile uploads localPath under objectKey. The whole file is hashed before
// upload because SigV4 signs the payload digest.
func (c *Client) PutFile(ctx context.Context, objectKey, localPath string) error {
	objectKey = normalizeKey(objectKey)
	if objectKey == "" {
		return fmt.Errorf("empty object key")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("path is a directory: %s", localPath)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	payloadHash := hex.EncodeToString(h.Sum(nil))
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	canonicalURI := "/" + c.bucket + "/" + escapeKey(objectKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+canonicalURI, f)
	if err != nil {
		return err
	}
	req.ContentLength = st.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	now := time.Now().UTC()
	c.sign(req, canonicalURI, payloadHash, now)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	return fmt.Errorf("put failed status=%d key=%s body=%s",
		resp.StatusCode, objectKey, strings.TrimSpace(string(body)))
}

func (c *Client) sign(req *http.Request, canonicalURI, payloadHash string, now time.Time) {
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	host := req.URL.Host

	req.Header.Set("Host", host)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", amzDate)

	const signedHeaders = "host;x-amz-content-sha256;x-amz-date"
	canonicalHeaders := "host:" + host + "\n" +
		"x-amz-content-sha256:" + payloadHash + "\n" +
		"x-amz-date:" + amzDate + "\n"
	canonicalRequest := strings.Join([]string{
		http.MethodPut, canonicalURI, "",
		canonicalHeaders, signedHeaders, payloadHash,
	}, "\n")

	scope := dateStamp + "/" + sigRegion + "/" + sigService + "/aws4_request"
	digest := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		sigAlgorithm, amzDate, scope, hex.EncodeToString(digest[:]),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+c.secretKey), []byte(dateStamp))
	key = hmacSHA256(key, []byte(sigRegion))
	key = hmacSHA256(key, []byte(sigService))
	key = hmacSHA256(key, []byte("aws4_request"))
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		sigAlgorithm, c.accessKey, scope, signedHeaders, signature))
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return ""
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "." || strings.HasPrefix(clean, "../") {
		return ""
	}
	return clean
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write(data)
	return h.Sum(nil)
}
