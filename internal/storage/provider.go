// Package storage defines the blob store abstraction used for plan exports.
// Implementations live in the local, gcs, s3 and memory subpackages.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// BlobStore saves an object and returns a URI that addresses it.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath string, contentType string, r io.Reader) (string, error)
}

// Discard is a BlobStore that drops every object. It is useful for dry runs
// where plans are generated but not archived.
type Discard struct{}

// PutObject drains r and returns an empty URI.
func (Discard) PutObject(_ context.Context, _ string, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", fmt.Errorf("discard object: %w", err)
	}
	return "", nil
}

// PlanPath lays plan exports out by completion date:
// <prefix>/plans/YYYY/MM/DD/<jobID>.json.
func PlanPath(prefix, jobID string, at time.Time) string {
	at = at.UTC()
	return path.Join(
		strings.Trim(prefix, "/"),
		"plans",
		at.Format("2006"),
		at.Format("01"),
		at.Format("02"),
		jobID+".json",
	)
}
