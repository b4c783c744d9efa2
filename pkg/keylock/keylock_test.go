package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Normalize([]string{"c", "a", "b", "a"}))
	assert.Empty(t, Normalize(nil))
}

func TestLocal_SerializesSameKey(t *testing.T) {
	locker := NewLocal()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unlock, err := Acquire(context.Background(), locker, 5*time.Second, "stock:1:ABC")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			counter++
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, int32(1), maxSeen, "同一时刻只能有一个持有者")
	assert.Empty(t, locker.slots, "无等待者时slot应被回收")
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocal()

	_, unlockA, err := Acquire(context.Background(), locker, time.Second, "stock:1:A")
	require.NoError(t, err)
	defer unlockA()

	_, unlockB, err := Acquire(context.Background(), locker, 50*time.Millisecond, "stock:1:B")
	require.NoError(t, err, "不同key不应互相阻塞")
	unlockB()
}

func TestAcquire_Timeout(t *testing.T) {
	locker := NewLocal()

	_, unlock, err := Acquire(context.Background(), locker, time.Second, "k")
	require.NoError(t, err)
	defer unlock()

	_, _, err = Acquire(context.Background(), locker, 20*time.Millisecond, "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLockTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAcquire_Reentrant(t *testing.T) {
	locker := NewLocal()

	ctx, unlock, err := Acquire(context.Background(), locker, time.Second, "k1", "k2")
	require.NoError(t, err)
	defer unlock()

	assert.True(t, Held(ctx, "k1"))
	assert.True(t, Held(ctx, "k2"))

	// 嵌套调用复用已持有的key,不会自己等自己
	inner, innerUnlock, err := Acquire(ctx, locker, 20*time.Millisecond, "k2", "k3")
	require.NoError(t, err)
	assert.True(t, Held(inner, "k3"))
	innerUnlock()
	innerUnlock() // 重复调用无副作用

	// k3已释放,k2仍被外层持有
	_, u3, err := Acquire(context.Background(), locker, 20*time.Millisecond, "k3")
	require.NoError(t, err)
	u3()
	_, _, err = Acquire(context.Background(), locker, 20*time.Millisecond, "k2")
	assert.Error(t, err)
}

func TestLocal_ReleasesPartialOnFailure(t *testing.T) {
	locker := NewLocal()

	_, unlockB, err := Acquire(context.Background(), locker, time.Second, "b")
	require.NoError(t, err)

	// a能拿到,b拿不到 → a必须被释放
	_, _, err = Acquire(context.Background(), locker, 20*time.Millisecond, "a", "b")
	require.Error(t, err)

	_, unlockA, err := Acquire(context.Background(), locker, 20*time.Millisecond, "a")
	require.NoError(t, err, "失败时已获取的锁应被释放")
	unlockA()
	unlockB()
}
