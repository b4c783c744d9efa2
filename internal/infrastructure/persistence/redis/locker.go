package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
	"github.com/xiebiao/stockcore/pkg/keylock"
)

// releaseLua 只删除自己持有的锁(value一致才删除)
// 防止锁过期后被其他实例获取,再被本实例误删
const releaseLua = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// renewLua 只为自己持有的锁续期
const renewLua = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

var (
	releaseScript = redis.NewScript(releaseLua)
	renewScript   = redis.NewScript(renewLua)
)

// Locker 基于Redis的分布式key锁(多实例部署时替代进程内锁)
// 教学要点:
// 1. SET key token NX PX ttl 原子加锁,token为UUID,标识持有者
// 2. 获取失败时按固定间隔重试,直到ctx超时/取消
// 3. 释放使用Lua脚本比较token后删除
// 4. 持锁期间每ttl/3续期一次,长事务不会因锁过期失去串行化
// 5. ttl兜底: 进程崩溃后停止续期,锁自动过期,不会永久阻塞
type Locker struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
}

// NewLocker 创建Redis锁
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		client:     client,
		prefix:     "lock:",
		ttl:        ttl,
		retryDelay: 20 * time.Millisecond,
	}
}

var _ keylock.Locker = (*Locker)(nil)

// Lock 实现keylock.Locker,keys已排序
func (l *Locker) Lock(ctx context.Context, keys []string) (func(), error) {
	token := uuid.New().String()
	acquired := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := l.acquire(ctx, l.prefix+key, token); err != nil {
			l.release(acquired, token)
			if ctx.Err() != nil {
				return nil, keylock.WaitError(ctx, key)
			}
			return nil, err
		}
		acquired = append(acquired, l.prefix+key)
	}

	stop := make(chan struct{})
	go l.keepAlive(acquired, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			l.release(acquired, token)
		})
	}, nil
}

// keepAlive 定期续期,直到stop关闭
func (l *Locker) keepAlive(keys []string, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		for _, key := range keys {
			_ = renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Err()
		}
		cancel()
	}
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return apperrors.WithDetail(apperrors.ErrRedisError, "加锁失败 %s: %v", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// release 逆序释放
// 使用独立的context: 调用方的ctx可能已经取消,锁仍然必须释放
func (l *Locker) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		_ = releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Err()
	}
}
