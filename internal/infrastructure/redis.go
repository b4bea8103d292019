package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 5 * time.Minute

// RedisPresence mirrors hub presence into redis so other processes (and a
// future second API replica) can read who is online per tenant.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(redisURL string) (*RedisPresence, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPresence{client: client}, nil
}

func presenceKey(tenantID string) string {
	return "presence:tenant:" + tenantID
}

func (r *RedisPresence) SetOnline(ctx context.Context, tenantID, userID string) error {
	key := presenceKey(tenantID)
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	// TTL refreshed on every transition; a crashed process's entries age out.
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisPresence) SetOffline(ctx context.Context, tenantID, userID string) error {
	return r.client.SRem(ctx, presenceKey(tenantID), userID).Err()
}

// Online lists the user ids currently marked online for a tenant.
func (r *RedisPresence) Online(ctx context.Context, tenantID string) ([]string, error) {
	return r.client.SMembers(ctx, presenceKey(tenantID)).Result()
}

func (r *RedisPresence) Close() error {
	return r.client.Close()
}
