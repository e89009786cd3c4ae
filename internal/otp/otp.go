// Package otp issues and checks one-time email codes.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	codeMin   = 100000
	codeRange = 900000
	keyPrefix = "otp:"
)

// Store issues codes and consumes them on successful verification.
type Store interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

// GenerateCode returns a uniformly random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// consumeScript deletes the key only when it holds the submitted code, so a
// code can be used once.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps one pending code per email with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis backed OTP store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "otp").Logger(),
	}
}

func key(email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Issue generates a new code for email, replacing any pending one.
func (s *RedisStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, key(email), code, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Msg("failed to store otp")
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Verify reports whether code matches the pending code for email. A match
// consumes the code.
func (s *RedisStore) Verify(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{key(email)}, code).Int()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to verify otp")
		return false, fmt.Errorf("failed to verify otp: %w", err)
	}
	return n == 1, nil
}
