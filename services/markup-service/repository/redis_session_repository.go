package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

const (
	fieldSearch    = "search"
	fieldMatching  = "matching"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// advanceScript returns {status, value}: 1 advanced, 0 stale, 2 limit reached, -1 missing.
var advanceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {-1, 0}
end
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if cur ~= tonumber(ARGV[2]) then
	return {0, cur}
end
if cur >= tonumber(ARGV[3]) then
	return {2, cur}
end
local nxt = redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[5])
redis.call('EXPIRE', KEYS[1], ARGV[4])
return {1, nxt}
`)

// RedisSessionRepository stores each session as a hash with a sliding TTL.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func (r *RedisSessionRepository) getKey(id string) string {
	return fmt.Sprintf("markup:session:%s", id)
}

func (r *RedisSessionRepository) Create(ctx context.Context) (*models.Session, error) {
	now := time.Now().UTC()
	s := &models.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	key := r.getKey(s.ID)
	stamp := now.Format(time.RFC3339Nano)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldSearch, 0,
			fieldMatching, 0,
			fieldCreatedAt, stamp,
			fieldUpdatedAt, stamp,
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	key := r.getKey(id)
	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}
	// Viewing counts as activity.
	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to refresh session ttl: %w", err)
	}
	return sessionFromHash(id, data)
}

func (r *RedisSessionRepository) Advance(ctx context.Context, id string, task models.TaskType, expected, limit int) (int, error) {
	field, err := progressField(task)
	if err != nil {
		return 0, err
	}

	res, err := advanceScript.Run(ctx, r.client, []string{r.getKey(id)},
		field,
		expected,
		limit,
		int64(r.ttl/time.Second),
		time.Now().UTC().Format(time.RFC3339Nano),
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to advance session: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected advance result %v", res)
	}

	value := int(res[1])
	switch res[0] {
	case 1:
		return value, nil
	case 0:
		return value, ErrStaleProgress
	case 2:
		return value, ErrProgressLimit
	default:
		return 0, ErrSessionNotFound
	}
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.getKey(id)).Err()
}

func progressField(task models.TaskType) (string, error) {
	switch task {
	case models.TaskSearch:
		return fieldSearch, nil
	case models.TaskMatching:
		return fieldMatching, nil
	}
	return "", fmt.Errorf("unknown task type %q", task)
}

func sessionFromHash(id string, data map[string]string) (*models.Session, error) {
	s := &models.Session{ID: id}
	var err error
	if s.SearchProgress, err = atoiDefault(data[fieldSearch]); err != nil {
		return nil, fmt.Errorf("corrupt %s counter: %w", fieldSearch, err)
	}
	if s.MatchingProgress, err = atoiDefault(data[fieldMatching]); err != nil {
		return nil, fmt.Errorf("corrupt %s counter: %w", fieldMatching, err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, data[fieldCreatedAt])
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, data[fieldUpdatedAt])
	return s, nil
}

func atoiDefault(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
