package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// StorageClient talks to the object-storage endpoints.
type StorageClient struct {
	client *Client
}

// Bucket scopes storage operations to a single bucket.
type Bucket struct {
	client *Client
	name   string
}

// From returns a handle on bucket.
func (s *StorageClient) From(bucket string) *Bucket {
	return &Bucket{client: s.client, name: bucket}
}

// UploadOptions control a single object upload.
type UploadOptions struct {
	// ContentType of the object; defaults to application/octet-stream.
	ContentType string
	// CacheControl is the max-age, in seconds, the object is served with.
	CacheControl string
	// Upsert overwrites an existing object at the same path.
	Upsert bool
	// Token authorizes the upload; anonymous when empty.
	Token string
}

// Upload stores the contents of r at path within the bucket.
func (b *Bucket) Upload(ctx context.Context, path string, r io.Reader, opts UploadOptions) error {
	headers := map[string]string{
		"Content-Type": opts.ContentType,
	}
	if opts.ContentType == "" {
		headers["Content-Type"] = "application/octet-stream"
	}
	if opts.CacheControl != "" {
		headers["Cache-Control"] = "max-age=" + opts.CacheControl
	}
	if opts.Upsert {
		headers["x-upsert"] = "true"
	}

	resp, err := b.client.doRequest(ctx, http.MethodPost, b.objectPath(path), opts.Token, r, headers)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// GetPublicURL returns the public URL of the object at path. No request is
// made; the URL is only reachable if the bucket is public.
func (b *Bucket) GetPublicURL(path string) string {
	return b.client.url("/storage/v1/object/public/" + b.name + "/" + path)
}

// Remove deletes the objects at the given paths.
func (b *Bucket) Remove(ctx context.Context, paths []string, token string) error {
	payload := map[string][]string{"prefixes": paths}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding paths")
	}

	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := b.client.doRequest(ctx, http.MethodDelete, "/storage/v1/object/"+b.name, token, bytes.NewReader(body), headers)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

func (b *Bucket) objectPath(path string) string {
	return "/storage/v1/object/" + b.name + "/" + path
}
