package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

const (
	tokenTTL     = 30 * 24 * time.Hour
	rateLimitTTL = time.Minute
)

// RedisStore handles Redis operations: auth tokens, rate limiting, and
// the pub/sub fan-out behind the SSE streams.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for middleware that keeps
// its own keys.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func tokenKey(token string) string {
	return fmt.Sprintf("token:%s", token)
}

func rateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}

// MessageChannel is the pub/sub channel carrying new messages for a match.
func MessageChannel(matchID uuid.UUID) string {
	return fmt.Sprintf("messages:%s", matchID)
}

// SessionChannel is the pub/sub channel carrying state updates for a session.
func SessionChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("sessions:%s", sessionID)
}

// SessionEventChannel is the pub/sub channel carrying timeline events for a session.
func SessionEventChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session_events:%s", sessionID)
}

// CreateToken issues an opaque bearer token mapped to the user id.
func (s *RedisStore) CreateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	if err := s.client.Set(ctx, tokenKey(token), userID.String(), tokenTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// GetUserForToken resolves a bearer token to a user id and refreshes its
// TTL. Returns uuid.Nil with no error for an unknown token.
func (s *RedisStore) GetUserForToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, err
	}

	s.client.Expire(ctx, tokenKey(token), tokenTTL)
	return id, nil
}

// RevokeToken deletes a bearer token.
func (s *RedisStore) RevokeToken(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}

// CheckRateLimit checks whether the user is under the per-window request
// limit.
func (s *RedisStore) CheckRateLimit(ctx context.Context, userID string, limit int) (bool, error) {
	count, err := s.client.Get(ctx, rateLimitKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return count < limit, nil
}

// IncrementRateLimit increments the user's fixed-window counter.
func (s *RedisStore) IncrementRateLimit(ctx context.Context, userID string) error {
	key := rateLimitKey(userID)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rateLimitTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// PublishMessage fans a new message out to the match's subscribers.
func (s *RedisStore) PublishMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, MessageChannel(msg.MatchID), data).Err()
}

// PublishSessionUpdate fans a session state change out to its subscribers.
func (s *RedisStore) PublishSessionUpdate(ctx context.Context, sess *models.SessionRecord) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, SessionChannel(sess.ID), data).Err()
}

// PublishSessionEvent fans a new timeline event out to its subscribers.
func (s *RedisStore) PublishSessionEvent(ctx context.Context, event *models.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, SessionEventChannel(event.SessionID), data).Err()
}

// Subscribe opens a pub/sub subscription on the given channel. The caller
// owns the returned subscription and must Close it.
func (s *RedisStore) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.client.Subscribe(ctx, channel)
}
