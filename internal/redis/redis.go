// Package redis wraps the shared redis connection. Besides plain client
// access it provides the owned lock used to serialize full sync runs across
// processes.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// releaseScript deletes the key only when the caller still owns it, so a
// run that outlives the lock TTL cannot clear a lock re-acquired by another
// process.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Client struct {
	*goredis.Client
}

func New(addr, password string) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{Client: client}, nil
}

// AcquireLock takes key for owner with the given TTL. Returns false when
// another owner already holds it.
func (c *Client) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock clears key only if owner still holds it. Releasing a lock that
// expired and was taken over by someone else is a silent no-op.
func (c *Client) ReleaseLock(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, c.Client, []string{key}, owner).Err(); err != nil {
		return fmt.Errorf("redis: release lock %s: %w", key, err)
	}
	return nil
}
