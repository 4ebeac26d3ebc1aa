package service

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/cenkalti/backoff/v5"
    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/metrics"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

// FanoutEngine 把新帖引用投递到接收者的 cache/log。
// regular 作者全量扇出；celebrity/mega 只推送活跃粉丝选集，其余靠读时 pull。
// log 写失败重试有界次数后落死信，单个接收者失败不中断整体扇出。
type FanoutEngine struct {
    log         repository.TimelineLogRepository
    cache       *cache.TimelineCache
    fans        repository.FanRepository
    profiles    repository.ProfileRepository
    deadLetters repository.DeadLetterRepository
    cfg         config.Timeline

    limiter   *rate.Limiter // 压住 celebrity 写风暴，保护 log 后端
    sem       chan struct{} // 批次并发上限
    metricsCh chan time.Duration
}

func NewFanoutEngine(
    log repository.TimelineLogRepository,
    tc *cache.TimelineCache,
    fans repository.FanRepository,
    profiles repository.ProfileRepository,
    deadLetters repository.DeadLetterRepository,
    cfg config.Timeline,
) *FanoutEngine {
    if cfg.FanoutBatchSize <= 0 {
        cfg.FanoutBatchSize = 1000
    }
    if cfg.FanoutConcurrency <= 0 {
        cfg.FanoutConcurrency = 8
    }
    if cfg.FanoutMaxAttempts <= 0 {
        cfg.FanoutMaxAttempts = 5
    }
    if cfg.FanoutWritesPerSecond <= 0 {
        cfg.FanoutWritesPerSecond = 5000
    }
    return &FanoutEngine{
        log:         log,
        cache:       tc,
        fans:        fans,
        profiles:    profiles,
        deadLetters: deadLetters,
        cfg:         cfg,
        limiter:     rate.NewLimiter(rate.Limit(cfg.FanoutWritesPerSecond), cfg.FanoutBatchSize),
        sem:         make(chan struct{}, cfg.FanoutConcurrency),
        metricsCh:   make(chan time.Duration, 65536),
    }
}

// Metrics 每完成一帖的扇出发送一次落地耗时（只读通道，bench 用）
func (e *FanoutEngine) Metrics() <-chan time.Duration { return e.metricsCh }

// Distribute 扇出一条新帖。调用方负责预算（写路径不携带客户端 deadline）。
// 重复投递幂等：cache/log 两层均按 post_id 去重。
func (e *FanoutEngine) Distribute(ctx context.Context, ref model.PostRef, class model.AuthorClass) error {
    start := time.Now()

    // 先保证作者自有 log 可见，pull 路径以此为准
    if err := e.appendLogRetry(ctx, ref.AuthorID, ref); err != nil {
        // 自有 log 写不进去意味着 pull 会漏帖，向上返回让 ingest 不提交位点
        return err
    }

    switch class {
    case model.ClassRegular:
        // regular 作者没有 pull 兜底，枚举不出粉丝等于整帖丢失，
        // 必须向上返回让 broker 重投（下游 cache/log 幂等）
        if err := e.fanoutAll(ctx, ref, class.String()); err != nil {
            return err
        }
    case model.ClassCelebrity:
        e.fanoutTopActive(ctx, ref, e.cfg.FanoutLimitCelebrity, class.String())
    case model.ClassMegaCelebrity:
        e.fanoutTopActive(ctx, ref, e.cfg.FanoutLimitMega, class.String())
    }

    d := time.Since(start)
    metrics.FanoutLanding.Observe(d.Seconds())
    select {
    case e.metricsCh <- d:
    default:
    }
    return nil
}

// fanoutAll regular 路径：分页枚举粉丝，批次并发写。
// log 无条件写；cache 只写活跃粉丝。枚举持续失败时返回错误。
func (e *FanoutEngine) fanoutAll(ctx context.Context, ref model.PostRef, label string) error {
    activeSince := time.Now().Add(-e.cfg.ActiveWindow).UnixMilli()
    var wg sync.WaitGroup
    offset := 0
    for {
        fans, err := e.listFansRetry(ctx, ref.AuthorID, offset)
        if err != nil {
            wg.Wait()
            logger.Error("fanout list fans", zap.String("author", ref.AuthorID), zap.Error(err))
            return fmt.Errorf("list fans for %s: %w", ref.AuthorID, err)
        }
        if len(fans) == 0 {
            break
        }
        owners := make([]string, len(fans))
        for i, f := range fans {
            owners[i] = f.FanID
        }

        wg.Add(1)
        e.sem <- struct{}{}
        go func(owners []string) {
            defer wg.Done()
            defer func() { <-e.sem }()
            e.deliverBatch(ctx, owners, ref, activeSince, label)
        }(owners)

        if len(fans) < e.cfg.FanoutBatchSize {
            break
        }
        offset += e.cfg.FanoutBatchSize
    }
    wg.Wait()
    return nil
}

// listFansRetry 粉丝枚举与 log 写同一套重试策略
func (e *FanoutEngine) listFansRetry(ctx context.Context, authorID string, offset int) ([]*model.Fan, error) {
    return backoff.Retry(ctx, func() ([]*model.Fan, error) {
        return e.fans.ListFans(ctx, authorID, offset, e.cfg.FanoutBatchSize)
    }, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(uint(e.cfg.FanoutMaxAttempts)))
}

// fanoutTopActive celebrity/mega 路径：只推送按活跃度排名前 limit 的粉丝，cache+log 双写
func (e *FanoutEngine) fanoutTopActive(ctx context.Context, ref model.PostRef, limit int, label string) {
    activeSince := time.Now().Add(-e.cfg.ActiveWindow).UnixMilli()
    owners, err := e.profiles.TopActiveFans(ctx, ref.AuthorID, activeSince, limit)
    if err != nil {
        // 选集取不到就完全退化为 pull，读路径兜底
        logger.Warn("fanout top-active selection failed, pull only",
            zap.String("author", ref.AuthorID), zap.Error(err))
        return
    }
    var wg sync.WaitGroup
    for start := 0; start < len(owners); start += e.cfg.FanoutBatchSize {
        end := start + e.cfg.FanoutBatchSize
        if end > len(owners) {
            end = len(owners)
        }
        batch := owners[start:end]
        wg.Add(1)
        e.sem <- struct{}{}
        go func(batch []string) {
            defer wg.Done()
            defer func() { <-e.sem }()
            // 选集本身就是活跃粉丝，全部进 cache
            e.writeLogBatch(ctx, batch, ref, label)
            e.writeCacheBatch(ctx, batch, ref)
        }(batch)
    }
    wg.Wait()
}

// deliverBatch log 全写 + cache 仅活跃
func (e *FanoutEngine) deliverBatch(ctx context.Context, owners []string, ref model.PostRef, activeSinceMs int64, label string) {
    e.writeLogBatch(ctx, owners, ref, label)

    profiles, err := e.profiles.GetByIDs(ctx, owners)
    if err != nil {
        // 活跃度判不出来就跳过 cache；log 已有数据，读路径会兜底
        logger.Warn("fanout activity lookup failed, skip cache",
            zap.String("post", ref.PostID), zap.Error(err))
        return
    }
    active := make([]string, 0, len(owners))
    for _, owner := range owners {
        if p, ok := profiles[owner]; ok && p.LastActiveAt >= activeSinceMs {
            active = append(active, owner)
        }
    }
    e.writeCacheBatch(ctx, active, ref)
}

// writeLogBatch 带限速与重试的 log 批量写；最终失败逐 owner 落死信
func (e *FanoutEngine) writeLogBatch(ctx context.Context, owners []string, ref model.PostRef, label string) {
    if len(owners) == 0 {
        return
    }
    if err := e.limiter.WaitN(ctx, len(owners)); err != nil {
        return
    }
    _, err := backoff.Retry(ctx, func() (struct{}, error) {
        return struct{}{}, e.log.AppendBatch(ctx, owners, ref)
    }, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(uint(e.cfg.FanoutMaxAttempts)))
    if err != nil {
        logger.Error("fanout log append dead-lettered",
            zap.String("post", ref.PostID), zap.Int("owners", len(owners)), zap.Error(err))
        for _, owner := range owners {
            metrics.FanoutDeadLetters.Inc()
            if dlErr := e.deadLetters.Save(ctx, owner, ref, err.Error(), e.cfg.FanoutMaxAttempts); dlErr != nil {
                logger.Error("dead letter save", zap.String("owner", owner), zap.Error(dlErr))
            }
        }
        return
    }
    metrics.FanoutRefs.WithLabelValues(label).Add(float64(len(owners)))
}

// writeCacheBatch cache 写失败是软失败，log 已兜底
func (e *FanoutEngine) writeCacheBatch(ctx context.Context, owners []string, ref model.PostRef) {
    if len(owners) == 0 {
        return
    }
    if err := e.cache.AppendBatch(ctx, owners, ref); err != nil {
        logger.Warn("fanout cache append", zap.String("post", ref.PostID), zap.Error(err))
    }
}

// appendLogRetry 单 owner 的必达写（作者自有 log）
func (e *FanoutEngine) appendLogRetry(ctx context.Context, ownerID string, ref model.PostRef) error {
    _, err := backoff.Retry(ctx, func() (struct{}, error) {
        return struct{}{}, e.log.Append(ctx, ownerID, ref)
    }, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(uint(e.cfg.FanoutMaxAttempts)))
    return err
}

