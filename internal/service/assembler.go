package service

import (
    "context"
    "errors"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/metrics"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

// ErrTimelineUnavailable 所有数据源都取不到任何数据
var ErrTimelineUnavailable = errors.New("timeline sources unavailable")

// TimelinePage 一页组装结果；Partial 表示有数据源失败但仍返回了可用部分
type TimelinePage struct {
    Posts      []HydratedPost `json:"posts"`
    NextCursor string         `json:"next_cursor,omitempty"`
    Partial    bool           `json:"partial"`
}

// Assembler 读路径：预计算时间线（cache/log）与 celebrity pull 归并出首页
type Assembler struct {
    cache    *cache.TimelineCache
    log      repository.TimelineLogRepository
    follows  repository.FollowRepository
    profiles repository.ProfileRepository
    pcache   *cache.ProfileCache
    classify *Classifier
    hydrator *Hydrator
    cfg      config.Timeline
}

func NewAssembler(
    tc *cache.TimelineCache,
    log repository.TimelineLogRepository,
    follows repository.FollowRepository,
    profiles repository.ProfileRepository,
    pcache *cache.ProfileCache,
    classify *Classifier,
    hydrator *Hydrator,
    cfg config.Timeline,
) *Assembler {
    return &Assembler{
        cache: tc, log: log, follows: follows, profiles: profiles,
        pcache: pcache, classify: classify, hydrator: hydrator, cfg: cfg,
    }
}

// HomeTimeline 组装一页主时间线，严格按 (created_at, post_id) 降序。
// 单一数据源失败降级为 partial，绝不因一个 celebrity 拉取失败整页报错。
func (a *Assembler) HomeTimeline(ctx context.Context, userID string, limit int, cursor *model.Cursor) (*TimelinePage, error) {
    start := time.Now()
    defer metrics.ObserveAssemble(start)

    partial := false

    // 1. 关注集分类：常规 vs celebrity
    celebrities, err := a.celebrityFollowing(ctx, userID)
    if err != nil {
        // 关注集取不到只影响 pull 路径，base 仍可用
        logger.Warn("assemble following set failed", zap.String("user", userID), zap.Error(err))
        partial = true
    }

    // 2. base：cache 优先，不足则并入 log
    base, baseFailed := a.baseTimeline(ctx, userID, limit, cursor)
    if baseFailed {
        partial = true
    }

    // 3. celebrity pull + 自有帖切片，带单调用 deadline 并行拉取
    pulled, pullPartial := a.pullSlices(ctx, userID, celebrities, limit, cursor)
    if pullPartial {
        partial = true
    }

    // 4-5. k 路归并去重截断
    lists := append([][]model.PostRef{base}, pulled...)
    merged := MergeRefs(lists, limit)

    if len(merged) == 0 && partial && baseFailed {
        // 没拿到任何数据且确有源失败：对客户端是硬失败
        return nil, ErrTimelineUnavailable
    }

    // 6. 水合
    posts, err := a.hydrator.Hydrate(ctx, merged)
    if err != nil {
        return nil, err
    }

    // 读主时间线视为活跃，供扇出活跃度判断
    go a.touch(userID)

    page := &TimelinePage{Posts: posts, Partial: partial}
    if len(merged) > 0 {
        last := merged[len(merged)-1]
        page.NextCursor = model.Cursor{CreatedAt: last.CreatedAt, PostID: last.PostID}.Encode()
    }
    return page, nil
}

// celebrityFollowing 返回关注集中按读路径分级为 celebrity 及以上的作者。
// 兜底方向统一由 Classifier 决定：分不出来的一律走 pull。
func (a *Assembler) celebrityFollowing(ctx context.Context, userID string) ([]string, error) {
    following, err := a.follows.ListFollowing(ctx, userID)
    if err != nil {
        return nil, err
    }
    if len(following) == 0 {
        return nil, nil
    }
    // 批量预热，逐个分级命中本地缓存
    if _, err := a.pcache.GetBatch(ctx, following); err != nil {
        logger.Warn("assemble classify prefetch failed", zap.Error(err))
    }
    celebs := make([]string, 0)
    for _, id := range following {
        if a.classify.ClassifyForRead(ctx, id) != model.ClassRegular {
            celebs = append(celebs, id)
        }
    }
    return celebs, nil
}

// baseTimeline cache 命中量足够就用 cache；否则与 log 归并。
// 返回 (refs, 是否有源失败)
func (a *Assembler) baseTimeline(ctx context.Context, userID string, limit int, cursor *model.Cursor) ([]model.PostRef, bool) {
    fetch := limit * 2

    cached, cacheErr := a.cache.Range(ctx, userID, cursor, fetch)
    if cacheErr == nil && len(cached) >= limit {
        metrics.CacheHits.Inc()
        return cached, false
    }
    if cacheErr != nil {
        logger.Warn("assemble cache range failed", zap.String("user", userID), zap.Error(cacheErr))
        cached = nil
    }
    metrics.CacheMisses.Inc()

    logged, logErr := a.log.Range(ctx, userID, cursor, fetch)
    if logErr != nil {
        logger.Warn("assemble log range failed", zap.String("user", userID), zap.Error(logErr))
        // log 挂了只剩 cache 的内容，标记 partial
        return cached, true
    }
    merged := MergeRefs([][]model.PostRef{cached, logged}, fetch)
    return merged, cacheErr != nil
}

// pullSlices 并行拉取每个 celebrity 的自有 log 切片 + 观看者自己的帖子。
// 单个作者失败只丢该作者，返回 partial 标记。
func (a *Assembler) pullSlices(ctx context.Context, userID string, celebrities []string, limit int, cursor *model.Cursor) ([][]model.PostRef, bool) {
    // 回看窗口有界，读成本可预测；更早的 celebrity 帖只能靠扇出命中
    upper := time.Now().UnixMilli()
    if cursor != nil {
        upper = cursor.CreatedAt
    }
    since := upper - a.cfg.CelebrityLookback.Milliseconds()

    authors := make([]string, 0, len(celebrities)+1)
    authors = append(authors, userID) // 自己的帖子出现在自己的主时间线
    for _, c := range celebrities {
        if c != userID {
            authors = append(authors, c)
        }
    }

    results := make([][]model.PostRef, len(authors))
    failed := make([]bool, len(authors))
    var wg sync.WaitGroup
    for i, author := range authors {
        wg.Add(1)
        go func(idx int, author string) {
            defer wg.Done()
            callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallDeadline)
            defer cancel()
            refs, err := a.log.RangeAuthor(callCtx, author, since, limit)
            if err != nil {
                logger.Warn("assemble celebrity pull failed",
                    zap.String("author", author), zap.Error(err))
                failed[idx] = true
                return
            }
            results[idx] = filterBelowCursor(refs, cursor)
        }(i, author)
    }
    wg.Wait()

    partial := false
    out := make([][]model.PostRef, 0, len(results))
    for i, refs := range results {
        if failed[i] {
            partial = true
            continue
        }
        out = append(out, refs)
    }
    return out, partial
}

// filterBelowCursor pull 结果里可能有 cursor 之后的新帖，分页时过滤
func filterBelowCursor(refs []model.PostRef, cursor *model.Cursor) []model.PostRef {
    if cursor == nil {
        return refs
    }
    out := refs[:0]
    for _, r := range refs {
        if r.Before(cursor.CreatedAt, cursor.PostID) {
            out = append(out, r)
        }
    }
    return out
}

func (a *Assembler) touch(userID string) {
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    _ = a.profiles.Touch(ctx, userID, time.Now().UnixMilli())
}
