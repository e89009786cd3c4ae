package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// FallbackStore tries S3 first and falls back to the local store.
type FallbackStore struct {
	s3        Store
	local     Store
	s3Prefix  string
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that prefers s3 when enabled. A nil s3
// store means local only.
func NewFallbackStore(s3, local Store, s3Prefix string, s3Enabled bool, logger zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		s3:        s3,
		local:     local,
		s3Prefix:  s3Prefix,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "fallback-store").Logger(),
	}
}

// Put uploads to S3 under s3Prefix+key, or stores key locally when S3 is
// unavailable. The body is buffered so it can be replayed.
func (s *FallbackStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if !s.s3Enabled || s.s3 == nil {
		s.logger.Debug().
			Bool("s3_enabled", s.s3Enabled).
			Bool("has_s3_store", s.s3 != nil).
			Msg("S3 disabled or not configured, using local file system")
		return s.local.Put(ctx, key, contentType, body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	s3Key := s.s3Prefix + key
	url, err := s.s3.Put(ctx, s3Key, contentType, bytes.NewReader(data))
	if err == nil {
		return url, nil
	}

	s.logger.Warn().
		Err(err).
		Str("s3_key", s3Key).
		Msg("failed to upload to S3, falling back to local file system")

	return s.local.Put(ctx, key, contentType, bytes.NewReader(data))
}
