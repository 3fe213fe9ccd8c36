package redis

import (
	"context"
	"fmt"

	"printhub/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisStatusCache mirrors the committed status of each program. It is a
// hint only: the mutation service uses it to short-circuit transitions out
// of FINISHED without a database read, and falls through on a miss. The
// authoritative check stays in the store's versioned update.
type RedisStatusCache struct {
	client *redis.Client
}

func NewRedisStatusCache(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

func statusKey(programID int64) string {
	return fmt.Sprintf("program:%d:status", programID)
}

func (r *RedisStatusCache) SetStatus(ctx context.Context, programID int64, status domain.ProgramStatus) error {
	return r.client.Set(ctx, statusKey(programID), string(status), 0).Err()
}

func (r *RedisStatusCache) GetStatus(ctx context.Context, programID int64) (domain.ProgramStatus, bool, error) {
	result, err := r.client.Get(ctx, statusKey(programID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return domain.ProgramStatus(result), true, nil
}

func (r *RedisStatusCache) Invalidate(ctx context.Context, programID int64) error {
	return r.client.Del(ctx, statusKey(programID)).Err()
}
