package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "lock:"
	defaultTTL    = 30 * time.Second
	defaultWait   = 5 * time.Second
	pollInterval  = 50 * time.Millisecond
)

var ErrLockTimeout = errors.New("lock wait timeout")

// 自分のトークンのときだけ消す
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// SET NX + TTL の簡易ロック。TTLが切れたら他が取れる
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration, wait time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if wait <= 0 {
		wait = defaultWait
	}
	return &RedisLock{client: client, ttl: ttl, wait: wait}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	k := lockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				//呼び出し元のctxが切れていても解放する
				releaseScript.Run(context.Background(), l.client, []string{k}, token)
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
