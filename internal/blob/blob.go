package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/safar/framely/internal/config"
	"github.com/safar/framely/internal/metrics"
	"google.golang.org/api/option"
)

// MaxUploadSize is the largest accepted image upload.
const MaxUploadSize = 2 << 20

const defaultSignedURLExpiry = 30 * time.Minute

var (
	ErrNoFile          = errors.New("blob: no file uploaded")
	ErrTooLarge        = errors.New("blob: file exceeds the upload limit")
	ErrContentType     = errors.New("blob: content type not allowed")
	ErrInvalidName     = errors.New("blob: object name is required")
	errInvalidBucket   = errors.New("blob: bucket name is required")
	errNotConfigured   = errors.New("blob: client is not configured")
	allowedContentType = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/gif":  {},
		"image/webp": {},
		"image/avif": {},
	}
)

// SignedURLs pairs the upload and download URLs issued for one object.
type SignedURLs struct {
	URL       string    `json:"url"`
	ReadURL   string    `json:"readUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Client stores product images in a single GCS bucket.
type Client struct {
	client     *storage.Client
	bucket     string
	accessID   string
	privateKey []byte
	expiry     time.Duration
	now        func() time.Time
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// NewClient opens a GCS client for cfg.Bucket. When a credentials file is
// given its service account key also signs URLs; otherwise the library
// detects a signer from the ambient credentials.
func NewClient(ctx context.Context, cfg config.StorageConfig) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	var (
		opts    []option.ClientOption
		account serviceAccount
	)
	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("blob: read credentials: %w", err)
		}
		if err := json.Unmarshal(raw, &account); err != nil {
			return nil, fmt.Errorf("blob: parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: create storage client: %w", err)
	}

	expiry := cfg.SignedURLExpiry
	if expiry <= 0 {
		expiry = defaultSignedURLExpiry
	}

	c := &Client{
		client:   client,
		bucket:   bucket,
		accessID: account.ClientEmail,
		expiry:   expiry,
		now:      time.Now,
	}
	if account.PrivateKey != "" {
		c.privateKey = []byte(account.PrivateKey)
	}
	return c, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Upload writes r to the named object, replacing any existing object, and
// returns its public URL.
func (c *Client) Upload(ctx context.Context, r io.Reader, name, contentType string) (string, error) {
	if c == nil || c.client == nil {
		return "", errNotConfigured
	}
	name, err := ValidateObjectName(name)
	if err != nil {
		return "", err
	}

	w := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return "", fmt.Errorf("blob: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("blob: finalize %s: %w", name, err)
	}

	metrics.BlobUploadBytes.Observe(float64(n))
	return ObjectURL(c.bucket, name), nil
}

// Delete removes the named object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return errNotConfigured
	}
	name, err := ValidateObjectName(name)
	if err != nil {
		return err
	}

	err = c.client.Bucket(c.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("blob: delete %s: %w", name, err)
	}
	return nil
}

// SignedURLs issues V4 signed URLs letting a client PUT and GET the named
// object until the configured expiry.
func (c *Client) SignedURLs(name string) (SignedURLs, error) {
	if c == nil || c.client == nil {
		return SignedURLs{}, errNotConfigured
	}
	name, err := ValidateObjectName(name)
	if err != nil {
		return SignedURLs{}, err
	}

	expiresAt := c.now().Add(c.expiry).UTC()
	bucket := c.client.Bucket(c.bucket)

	put, err := bucket.SignedURL(name, c.signOptions(http.MethodPut, expiresAt))
	if err != nil {
		return SignedURLs{}, fmt.Errorf("blob: sign upload url: %w", err)
	}
	get, err := bucket.SignedURL(name, c.signOptions(http.MethodGet, expiresAt))
	if err != nil {
		return SignedURLs{}, fmt.Errorf("blob: sign read url: %w", err)
	}

	return SignedURLs{URL: put, ReadURL: get, ExpiresAt: expiresAt}, nil
}

func (c *Client) signOptions(method string, expiresAt time.Time) *storage.SignedURLOptions {
	return &storage.SignedURLOptions{
		GoogleAccessID: c.accessID,
		PrivateKey:     c.privateKey,
		Scheme:         storage.SigningSchemeV4,
		Method:         method,
		Expires:        expiresAt,
	}
}

// ValidateImage checks an upload's size and content type and returns the
// normalised content type.
func ValidateImage(size int64, contentType string) (string, error) {
	if size <= 0 {
		return "", ErrNoFile
	}
	if size > MaxUploadSize {
		return "", ErrTooLarge
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if _, ok := allowedContentType[contentType]; !ok {
		return "", ErrContentType
	}
	return contentType, nil
}

// ObjectName derives a fresh object name that keeps the original extension.
func ObjectName(original string) string {
	return uuid.NewString() + strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(original, "\\", "/"))))
}

// ValidateObjectName rejects names that are empty or escape the bucket root.
func ValidateObjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", ErrInvalidName
	}
	return name, nil
}

func ObjectURL(bucket, name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, url.PathEscape(name))
}
