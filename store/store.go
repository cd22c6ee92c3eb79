// store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/gameengine/models"
)

const roomKeyPrefix = "room:"

// 错误定义
var (
	ErrNotFound = errors.New("room state not found")
)

// Store 房间状态存储接口
type Store interface {
	Get(ctx context.Context, roomID string) (*models.RoomState, error)
	Save(ctx context.Context, roomID string, state *models.RoomState) error
	Delete(ctx context.Context, roomID string) error
	Exists(ctx context.Context, roomID string) (bool, error)
	Close() error
}

// RedisStore keeps one serialized RoomState per room under "room:<id>"
// with a TTL that is re-applied on every save. Rooms that stop receiving
// events are evicted by Redis once the TTL lapses.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get loads the room state. A missing key is ErrNotFound, not a failure.
func (s *RedisStore) Get(ctx context.Context, roomID string) (*models.RoomState, error) {
	data, err := s.client.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}

	var state models.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return &state, nil
}

// Save persists the state and (re)sets the TTL, populated or not.
func (s *RedisStore) Save(ctx context.Context, roomID string, state *models.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", roomID, err)
	}
	if err := s.client.Set(ctx, roomKeyPrefix+roomID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save room %s: %w", roomID, err)
	}
	return nil
}

// Delete removes the room state.
func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, roomKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

// Exists reports whether the room has a live entry.
func (s *RedisStore) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.client.Exists(ctx, roomKeyPrefix+roomID).Result()
	if err != nil {
		return false, fmt.Errorf("check room %s: %w", roomID, err)
	}
	return n > 0, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
