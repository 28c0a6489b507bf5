package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type Category string

const (
	CategoryLogo       Category = "logo"
	CategoryAttachment Category = "attachment"
)

// ObjectStore is the object-storage capability creation flows consume.
// Upload refuses to overwrite an existing key; Delete of a missing key is not
// an error, so compensation and journal replays stay idempotent.
type ObjectStore interface {
	Upload(ctx context.Context, category Category, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, category Category, key string) error
	DeletePrefix(ctx context.Context, category Category, prefix string) error
	ListKeys(ctx context.Context, category Category, prefix string) ([]string, error)
	PublicURL(category Category, key string) string
	SignedURL(category Category, key string, ttl time.Duration) (string, error)
}

type bucketConfig struct {
	name      string
	cdnDomain string
}

type bucketService struct {
	log              *logger.Logger
	client           *gcs.Client
	logoBucket       bucketConfig
	attachmentBucket bucketConfig
	publicBaseURL    string
}

func NewBucketService(baseLog *logger.Logger) (ObjectStore, error) {
	serviceLog := baseLog.With("service", "BucketService")

	logoBucketName := strings.TrimSpace(os.Getenv("LOGO_GCS_BUCKET_NAME"))
	attachmentBucketName := strings.TrimSpace(os.Getenv("ATTACHMENT_GCS_BUCKET_NAME"))
	if logoBucketName == "" {
		return nil, fmt.Errorf("missing env var LOGO_GCS_BUCKET_NAME")
	}
	if attachmentBucketName == "" {
		return nil, fmt.Errorf("missing env var ATTACHMENT_GCS_BUCKET_NAME")
	}

	publicBaseURL, err := resolvePublicBaseURL()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := newStorageClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"logo_bucket", logoBucketName,
		"attachment_bucket", attachmentBucketName,
		"public_base_url", publicBaseURL,
	)

	return &bucketService{
		log:    serviceLog,
		client: client,
		logoBucket: bucketConfig{
			name:      logoBucketName,
			cdnDomain: strings.TrimSpace(os.Getenv("LOGO_CDN_DOMAIN")),
		},
		attachmentBucket: bucketConfig{
			name:      attachmentBucketName,
			cdnDomain: strings.TrimSpace(os.Getenv("ATTACHMENT_CDN_DOMAIN")),
		},
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClient(ctx context.Context) (*gcs.Client, error) {
	if host := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")); host != "" {
		return gcs.NewClient(ctx, option.WithoutAuthentication())
	}
	return gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
}

func resolvePublicBaseURL() (string, error) {
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL"))
	if raw == "" {
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func (bs *bucketService) getBucketConfig(category Category) (bucketConfig, error) {
	switch category {
	case CategoryLogo:
		return bs.logoBucket, nil
	case CategoryAttachment:
		return bs.attachmentBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category: %s", category)
	}
}

// Upload writes the object with an explicit content type. The DoesNotExist
// precondition makes a second upload to the same key fail instead of silently
// overwriting.
func (bs *bucketService) Upload(ctx context.Context, category Category, key, contentType string, r io.Reader) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := bs.client.Bucket(cfg.name).Object(key).If(gcs.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) Delete(ctx context.Context, category Category, key string) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = bs.client.Bucket(cfg.name).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete object %q in bucket %q: %w", key, cfg.name, err)
	}
	return nil
}

func (bs *bucketService) ListKeys(ctx context.Context, category Category, prefix string) ([]string, error) {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := bs.client.Bucket(cfg.name).Objects(ctx, &gcs.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (bs *bucketService) DeletePrefix(ctx context.Context, category Category, prefix string) error {
	keys, err := bs.ListKeys(ctx, category, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := bs.Delete(ctx, category, k); err != nil {
			bs.log.Warn("failed to delete object under prefix (continuing)", "prefix", prefix, "key", k, "error", err)
		}
	}
	return nil
}

func (bs *bucketService) PublicURL(category Category, key string) string {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, cfg.name, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

func (bs *bucketService) SignedURL(category Category, key string, ttl time.Duration) (string, error) {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return "", err
	}
	u, err := bs.client.Bucket(cfg.name).SignedURL(key, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %q: %w", key, err)
	}
	return u, nil
}
