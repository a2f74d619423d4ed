// Package media stores thumbnails and lecture files on a GCS bucket
// and hands back the public URL plus the object key needed to delete
// the file later.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/learnhub/learnhub/config"
	"github.com/learnhub/learnhub/random"
)

type Upload struct {
	URL string
	Key string
}

type Client struct {
	bucket    string
	cdnDomain string
	client    *storage.Client
}

func New(ctx context.Context, cfg config.Media) (*Client, error) {
	cl, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("building storage client: %w", err)
	}

	return &Client{
		bucket:    cfg.Bucket,
		cdnDomain: cfg.CDNDomain,
		client:    cl,
	}, nil
}

// Upload writes the file under a random key prefixed by its folder
// (e.g. "thumbnails", "lectures") and returns the public URL.
func (c *Client) Upload(ctx context.Context, folder string, filename string, src io.Reader) (Upload, error) {
	key := path.Join(folder, random.String(20)+path.Ext(filename))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return Upload{}, fmt.Errorf("writing object[%s]: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return Upload{}, fmt.Errorf("closing object[%s]: %w", key, err)
	}

	return Upload{URL: c.url(key), Key: key}, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := c.client.Bucket(c.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("deleting object[%s]: %w", key, err)
	}

	return nil
}

func (c *Client) url(key string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucket, key)
}
