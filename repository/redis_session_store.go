package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"policydesk-backend/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "policydesk:session:"

// RedisSessionStore keeps sessions in Redis so several server processes can
// share them. Turns live in a list appended with RPUSH, which Redis applies
// atomically per key.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore creates a Redis-backed session store. A zero ttl keeps
// sessions until evicted by Redis.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_session_store")),
	}
}

func turnsKey(id string) string { return sessionKeyPrefix + id + ":turns" }
func metaKey(id string) string  { return sessionKeyPrefix + id + ":meta" }

// touch creates the session metadata once and refreshes expiry.
func (s *RedisSessionStore) touch(ctx context.Context, id string) (time.Time, error) {
	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, metaKey(id), "created_at", strconv.FormatInt(now.UnixMilli(), 10))
	created := pipe.HGet(ctx, metaKey(id), "created_at")
	if s.ttl > 0 {
		pipe.Expire(ctx, metaKey(id), s.ttl)
		pipe.Expire(ctx, turnsKey(id), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return time.Time{}, fmt.Errorf("failed to touch session: %w", err)
	}

	ms, err := created.Int64()
	if err != nil {
		return now, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

// GetOrCreate returns the session with its turns.
func (s *RedisSessionStore) GetOrCreate(ctx context.Context, id string) (*models.ChatSession, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	createdAt, err := s.touch(ctx, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ChatSession{ID: id, Turns: turns, CreatedAt: createdAt}, nil
}

// AppendTurn pushes one encoded turn.
func (s *RedisSessionStore) AppendTurn(ctx context.Context, id string, turn models.Turn) error {
	if id == "" {
		return ErrEmptySessionID
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	if err := s.client.RPush(ctx, turnsKey(id), data).Err(); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if _, err := s.touch(ctx, id); err != nil {
		return err
	}
	return nil
}

// History decodes the stored turns. Undecodable entries are skipped.
func (s *RedisSessionStore) History(ctx context.Context, id string) ([]models.Turn, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	raw, err := s.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}
	turns := make([]models.Turn, 0, len(raw))
	for _, r := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			s.logger.Warn("skipping undecodable turn", zap.String("session_id", id), zap.Error(err))
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}
