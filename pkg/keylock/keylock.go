// Package keylock 提供按key串行化的互斥锁
//
// 教学要点:
// 1. 同一个key(如 门店+SKU)上的写操作必须串行,不同key之间完全并行
// 2. 多个key总是按字典序加锁,避免两个请求交叉持有导致死锁
// 3. 等待锁时响应context取消/超时,任何操作都不会无限阻塞
// 4. 已持有的key记录在context中,同一调用链上的嵌套加锁直接复用(可重入)
//
// 标准用法(先加锁,再开事务):
//
//	ctx, unlock, err := keylock.Acquire(ctx, locker, time.Second, key)
//	if err != nil {
//	    return err
//	}
//	defer unlock()
//	return txManager.Transaction(ctx, func(txCtx context.Context) error { ... })
package keylock

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// Locker 多key锁
// 实现约定: keys已排序且去重; 失败时已获取的锁必须全部释放
type Locker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

type heldKeysCtxKey struct{}

// Acquire 获取一组key的锁
// 1. 跳过ctx中已持有的key(可重入)
// 2. 剩余key排序去重后交给Locker
// 3. timeout>0时等待时间受限,超时返回ErrLockTimeout
//
// 返回的ctx携带已持有的key,后续嵌套调用必须使用它
func Acquire(ctx context.Context, l Locker, timeout time.Duration, keys ...string) (context.Context, func(), error) {
	pending := pendingKeys(ctx, keys)
	if len(pending) == 0 {
		return ctx, func() {}, nil
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	unlock, err := l.Lock(waitCtx, pending)
	if err != nil {
		return ctx, nil, err
	}

	var once sync.Once
	return withHeld(ctx, pending), func() { once.Do(unlock) }, nil
}

// Held 判断ctx是否已持有key
func Held(ctx context.Context, key string) bool {
	held, _ := ctx.Value(heldKeysCtxKey{}).(map[string]struct{})
	_, ok := held[key]
	return ok
}

// Normalize 排序并去重
func Normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func pendingKeys(ctx context.Context, keys []string) []string {
	normalized := Normalize(keys)
	out := normalized[:0]
	for _, k := range normalized {
		if !Held(ctx, k) {
			out = append(out, k)
		}
	}
	return out
}

func withHeld(ctx context.Context, keys []string) context.Context {
	prev, _ := ctx.Value(heldKeysCtxKey{}).(map[string]struct{})
	held := make(map[string]struct{}, len(prev)+len(keys))
	for k := range prev {
		held[k] = struct{}{}
	}
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return context.WithValue(ctx, heldKeysCtxKey{}, held)
}

// WaitError 把context错误转换为锁等待错误
func WaitError(ctx context.Context, key string) error {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeLockTimeout,
		Message: apperrors.ErrLockTimeout.Message,
		Err:     &waitErr{key: key, cause: ctx.Err(), base: apperrors.ErrLockTimeout},
	}
}

type waitErr struct {
	key   string
	cause error
	base  error
}

func (e *waitErr) Error() string { return "等待锁 " + e.key + ": " + e.cause.Error() }

func (e *waitErr) Unwrap() []error { return []error{e.base, e.cause} }

// =========================================
// 进程内实现
// =========================================

// Local 进程内按key互斥
// 每个key对应一个容量为1的channel,写入即持有;等待者通过select同时监听ctx
// 没有等待者时slot会被回收,map不会无限增长
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal 创建进程内锁
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock 实现Locker
func (l *Local) Lock(ctx context.Context, keys []string) (func(), error) {
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquire(ctx, key); err != nil {
			l.releaseAll(acquired)
			return nil, err
		}
		acquired = append(acquired, key)
	}
	return func() { l.releaseAll(acquired) }, nil
}

func (l *Local) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key)
		return WaitError(ctx, key)
	}
}

func (l *Local) releaseAll(keys []string) {
	// 逆序释放
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()

		<-s.ch
		l.unref(keys[i])
	}
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
