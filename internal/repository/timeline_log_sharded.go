package repository

import (
    "context"
    "hash/fnv"
    "sort"
    "sync"

    "gorm.io/gorm"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// ShardedLogRepository 按 owner 哈希分库的 timeline log 实现。
// owner 维度的 Append/Range 精确路由到单库；RangeAuthor 需要散出到
// 全部分片（作者自有 log 落在作者所在分片，这里仍并发查询后归并，
// 保持与历史数据兼容）。
type ShardedLogRepository struct {
    shards []*gorm.DB
}

// NewShardedLogRepository 分片数量由连接数决定
func NewShardedLogRepository(dbs []*gorm.DB) TimelineLogRepository {
    return &ShardedLogRepository{shards: dbs}
}

// routeOwner owner 哈希路由
func (r *ShardedLogRepository) routeOwner(ownerID string) *gorm.DB {
    h := fnv.New32a()
    _, _ = h.Write([]byte(ownerID))
    return r.shards[int(h.Sum32())%len(r.shards)]
}

func (r *ShardedLogRepository) Append(ctx context.Context, ownerID string, ref model.PostRef) error {
    return appendEntries(ctx, r.routeOwner(ownerID), []string{ownerID}, ref)
}

func (r *ShardedLogRepository) AppendBatch(ctx context.Context, ownerIDs []string, ref model.PostRef) error {
    // 一批 owner 可能落在不同分片，按分片分组后逐片批量写
    groups := make(map[int][]string)
    for _, owner := range ownerIDs {
        h := fnv.New32a()
        _, _ = h.Write([]byte(owner))
        idx := int(h.Sum32()) % len(r.shards)
        groups[idx] = append(groups[idx], owner)
    }
    for idx, owners := range groups {
        if err := appendEntries(ctx, r.shards[idx], owners, ref); err != nil {
            return err
        }
    }
    return nil
}

func (r *ShardedLogRepository) Range(ctx context.Context, ownerID string, cursor *model.Cursor, limit int) ([]model.PostRef, error) {
    return rangeOwner(ctx, r.routeOwner(ownerID), ownerID, cursor, limit)
}

// RangeAuthor 并发散出到所有分片，应用层归并排序后截断
func (r *ShardedLogRepository) RangeAuthor(ctx context.Context, authorID string, sinceMs int64, limit int) ([]model.PostRef, error) {
    var wg sync.WaitGroup
    results := make([][]model.PostRef, len(r.shards))
    errs := make([]error, len(r.shards))
    for i, shard := range r.shards {
        wg.Add(1)
        go func(idx int, db *gorm.DB) {
            defer wg.Done()
            results[idx], errs[idx] = rangeAuthor(ctx, db, authorID, sinceMs, limit)
        }(i, shard)
    }
    wg.Wait()
    merged := make([]model.PostRef, 0, limit)
    for i, refs := range results {
        if errs[i] != nil {
            return nil, errs[i]
        }
        merged = append(merged, refs...)
    }
    sort.Slice(merged, func(i, j int) bool { return merged[i].After(merged[j]) })
    if len(merged) > limit {
        merged = merged[:limit]
    }
    return merged, nil
}

func (r *ShardedLogRepository) Size(ctx context.Context, ownerID string) (int64, error) {
    var cnt int64
    err := r.routeOwner(ownerID).WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("owner_id = ?", ownerID).Count(&cnt).Error
    if err != nil {
        return 0, ErrLogUnavailable
    }
    return cnt, nil
}
