package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore implements ObjectStore on Google Cloud Storage, carrying the
// revision token as the object generation number. Authentication is
// Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore verifies the bucket is reachable and returns the store.
func NewGCSStore(ctx context.Context, client *storage.Client, bucket string) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	// Fail fast on startup if the bucket is misconfigured.
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("get bucket %q attributes: %w", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Get implements ObjectStore.
func (s *GCSStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, "", fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", path, err)
	}
	return data, strconv.FormatInt(r.Attrs.Generation, 10), nil
}

// Put implements ObjectStore using generation-match preconditions.
func (s *GCSStore) Put(ctx context.Context, path string, data []byte, rev string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(path)
	if rev == "" {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		gen, err := strconv.ParseInt(rev, 10, 64)
		if err != nil {
			return "", fmt.Errorf("bad revision token %q: %w", rev, err)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", classifyGCSWrite(path, err)
	}
	if err := w.Close(); err != nil {
		return "", classifyGCSWrite(path, err)
	}
	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

func classifyGCSWrite(path string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", ErrRevisionMismatch, path)
	}
	return fmt.Errorf("write object %s: %w", path, err)
}
