// Package storage persists uploaded images and returns their public URLs.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store saves an object under key and returns the URL it is served from.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ObjectKey builds a unique key for an uploaded file, keeping its extension.
func ObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("images", time.Now().UTC().Format("2006/01"), uuid.NewString()+ext)
}
