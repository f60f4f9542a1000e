package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter is a fixed-window counter keyed by caller. The window starts
// at the first hit in it.
type RateLimiter struct {
	cli *redis.Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{cli: client.cli}
}

// INCR and PEXPIRE run as one script so a counter never outlives its window
// when the caller goes away between the two.
var luaHit = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := luaHit.Run(ctx, r.cli, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

func ClientRouteKey(clientID, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", clientID, route)
}
