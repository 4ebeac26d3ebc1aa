package service

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

type graphAction int

const (
    graphFollow graphAction = iota + 1
    graphUnfollow
)

type graphJob struct {
    action     graphAction
    authorID   string // 被关注方
    followerID string
    enqAt      time.Time
}

// backfillLimit 新关注时回填的历史帖数量上限
const backfillLimit = 50

// GraphReplicator 关注关系变更的异步收尾：维护扇出用的粉丝冗余表，
// 并把变更反映到 follower 的时间线上——关注时回填作者近期帖子，
// 取关时清掉 cache 里该作者的残留。请求路径只入队，不等落地。
type GraphReplicator struct {
    fans      repository.FanRepository
    log       repository.TimelineLogRepository
    timelines *cache.TimelineCache
    lookback  time.Duration

    ch        chan graphJob
    metricsCh chan time.Duration
}

func NewGraphReplicator(
    fans repository.FanRepository,
    log repository.TimelineLogRepository,
    timelines *cache.TimelineCache,
    lookback time.Duration,
    queueSize int,
) *GraphReplicator {
    if queueSize <= 0 {
        queueSize = 10000
    }
    if lookback <= 0 {
        lookback = 24 * time.Hour
    }
    return &GraphReplicator{
        fans:      fans,
        log:       log,
        timelines: timelines,
        lookback:  lookback,
        ch:        make(chan graphJob, queueSize),
        metricsCh: make(chan time.Duration, 65536),
    }
}

func (r *GraphReplicator) Start(workers int) func(context.Context) error {
    if workers <= 0 {
        workers = 4
    }
    stopCh := make(chan struct{})
    for i := 0; i < workers; i++ {
        go func() {
            for {
                select {
                case job := <-r.ch:
                    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
                    r.apply(ctx, job)
                    cancel()
                    if !job.enqAt.IsZero() {
                        select {
                        case r.metricsCh <- time.Since(job.enqAt):
                        default:
                        }
                    }
                case <-stopCh:
                    // 停机前把已入队的任务清完
                    for {
                        select {
                        case job := <-r.ch:
                            ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
                            r.apply(ctx, job)
                            cancel()
                        default:
                            return
                        }
                    }
                }
            }
        }()
    }
    return func(ctx context.Context) error {
        close(stopCh)
        // 等待队列自然排空一小段时间
        timeout := time.After(2 * time.Second)
        for {
            select {
            case <-timeout:
                return nil
            default:
                if len(r.ch) == 0 {
                    return nil
                }
                time.Sleep(50 * time.Millisecond)
            }
        }
    }
}

func (r *GraphReplicator) apply(ctx context.Context, job graphJob) {
    switch job.action {
    case graphFollow:
        if err := r.fans.Create(ctx, job.authorID, job.followerID); err != nil {
            logger.Warn("replicate fan edge", zap.String("author", job.authorID), zap.Error(err))
            return
        }
        r.backfill(ctx, job.authorID, job.followerID)
    case graphUnfollow:
        if err := r.fans.Delete(ctx, job.authorID, job.followerID); err != nil {
            logger.Warn("remove fan edge", zap.String("author", job.authorID), zap.Error(err))
        }
        if err := r.timelines.RemoveAuthor(ctx, job.followerID, job.authorID); err != nil {
            // cache 清不掉由 TTL 兜底，不重试
            logger.Warn("prune unfollowed author", zap.String("follower", job.followerID), zap.Error(err))
        }
    }
}

// backfill 新关注立即能在主页看到作者的近期帖子，而不是等下一次发帖
func (r *GraphReplicator) backfill(ctx context.Context, authorID, followerID string) {
    since := time.Now().Add(-r.lookback).UnixMilli()
    refs, err := r.log.RangeAuthor(ctx, authorID, since, backfillLimit)
    if err != nil {
        logger.Warn("backfill range author", zap.String("author", authorID), zap.Error(err))
        return
    }
    for _, ref := range refs {
        if err := r.log.Append(ctx, followerID, ref); err != nil {
            logger.Warn("backfill log append", zap.String("post", ref.PostID), zap.Error(err))
            return
        }
        if err := r.timelines.Append(ctx, followerID, ref); err != nil {
            logger.Warn("backfill cache append", zap.String("post", ref.PostID), zap.Error(err))
            return
        }
    }
}

func (r *GraphReplicator) EnqueueFollow(authorID, followerID string) {
    r.enqueue(graphJob{action: graphFollow, authorID: authorID, followerID: followerID, enqAt: time.Now()})
}

func (r *GraphReplicator) EnqueueUnfollow(authorID, followerID string) {
    r.enqueue(graphJob{action: graphUnfollow, authorID: authorID, followerID: followerID, enqAt: time.Now()})
}

func (r *GraphReplicator) enqueue(job graphJob) {
    select {
    case r.ch <- job:
    default:
        logger.Warn("graph replicator queue full, drop",
            zap.String("author", job.authorID), zap.String("follower", job.followerID))
    }
}

// Metrics 返回变更落地耗时的只读通道（每处理一条发送一次 duration）。
func (r *GraphReplicator) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (r *GraphReplicator) QueueLen() int { return len(r.ch) }
