package lock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type Redis struct {
	client redis.Cmdable
	opts   Options
}

func NewRedis(client redis.Cmdable, opts Options) *Redis {
	return &Redis{
		client: client,
		opts:   opts.withDefaults(),
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	token := r.opts.Token()

	err := retry(ctx, r.opts, func(ctx context.Context) (bool, error) {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to set lease: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	return &redisLease{owner: r, key: key, token: token}, nil
}

type redisLease struct {
	owner *Redis
	key   string
	token string
}

func (rl *redisLease) Key() string {
	return rl.key
}

func (rl *redisLease) Release(ctx context.Context) error {
	deleted, err := rl.owner.client.Eval(ctx, releaseScript, []string{rl.key}, rl.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}
