package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/stockcore/internal/domain/snapshot"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// StockCache 库存快照读缓存
// 设计说明：
// 1. 数据库是唯一真相,缓存只服务于高频的可售量查询
// 2. 写路径在事务提交后、释放key锁之前写入最新快照,TTL兜底
// 3. Key设计：stockcache:{store_id}:{sku},值为完整快照的JSON
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStockCache 创建库存缓存
func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StockCache{client: client, ttl: ttl}
}

func cacheKey(storeID uint, sku string) string {
	return fmt.Sprintf("stockcache:%d:%s", storeID, sku)
}

// Put 写入快照
func (c *StockCache) Put(ctx context.Context, s *snapshot.Snapshot) error {
	val, err := json.Marshal(s)
	if err != nil {
		return apperrors.WithDetail(apperrors.ErrRedisError, "序列化库存快照失败: %v", err)
	}
	if err := c.client.Set(ctx, cacheKey(s.StoreID, s.SKU), val, c.ttl).Err(); err != nil {
		return apperrors.WithDetail(apperrors.ErrRedisError, "写入库存缓存失败: %v", err)
	}
	return nil
}

// Get 读取快照,未命中返回(nil, false, nil)
func (c *StockCache) Get(ctx context.Context, storeID uint, sku string) (*snapshot.Snapshot, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(storeID, sku)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.WithDetail(apperrors.ErrRedisError, "读取库存缓存失败: %v", err)
	}

	var s snapshot.Snapshot
	if err := json.Unmarshal(val, &s); err != nil {
		// 格式损坏按未命中处理,回源后会被覆盖
		return nil, false, nil
	}
	if s.StoreID != storeID || s.SKU != sku {
		return nil, false, nil
	}
	return &s, true, nil
}

// Invalidate 删除缓存
func (c *StockCache) Invalidate(ctx context.Context, storeID uint, sku string) error {
	if err := c.client.Del(ctx, cacheKey(storeID, sku)).Err(); err != nil {
		return apperrors.WithDetail(apperrors.ErrRedisError, "删除库存缓存失败: %v", err)
	}
	return nil
}
