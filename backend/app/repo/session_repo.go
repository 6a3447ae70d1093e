package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fota-manager/backend/app/apperr"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "fota:session:"

// SessionMeta is the part of a session that survives a restart.
type SessionMeta struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRedisRepository mirrors session metadata into Redis with a TTL.
type SessionRedisRepository struct {
	rdb *redis.Client
}

func NewSessionRedisRepository(rdb *redis.Client) *SessionRedisRepository {
	return &SessionRedisRepository{rdb: rdb}
}

func (r *SessionRedisRepository) Save(ctx context.Context, meta SessionMeta, ttl time.Duration) error {
	b, err := encodeSession(meta)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(meta.ID), b, ttl).Err()
}

func (r *SessionRedisRepository) Load(ctx context.Context, id string) (*SessionMeta, error) {
	b, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.NotFound("load session", "session not found")
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(b)
}

func (r *SessionRedisRepository) Touch(ctx context.Context, id string, ttl time.Duration) error {
	return r.rdb.Expire(ctx, sessionKey(id), ttl).Err()
}

func (r *SessionRedisRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func encodeSession(meta SessionMeta) ([]byte, error) {
	if meta.ID == "" {
		return nil, fmt.Errorf("encode session: missing id")
	}
	return json.Marshal(meta)
}

func decodeSession(b []byte) (*SessionMeta, error) {
	var meta SessionMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if meta.ID == "" {
		return nil, fmt.Errorf("decode session: missing id")
	}
	return &meta, nil
}
