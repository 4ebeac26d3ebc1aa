package main

import (
    "context"
    "fmt"
    "os"
    "sort"
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/internal/service"
    "github.com/d60-Lab/home-timeline/pkg/database"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

func main() {
    cfg, err := config.Load()
    if err != nil { panic(err) }
    logger.Init("warn", false)
    db, err := database.InitDB(cfg)
    if err != nil { panic(err) }

    FANS := 10000
    if s := os.Getenv("FANS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { FANS = v } }
    POSTS := 20
    if s := os.Getenv("POSTS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { POSTS = v } }

    ctx := context.Background()
    author := "bench-author"
    now := time.Now().UnixMilli()

    // seed author + FANS active followers
    profileRepo := repository.NewProfileRepository(db)
    fanRepo := repository.NewFanRepository(db)
    _ = profileRepo.Save(ctx, &model.UserProfile{ID: author, Username: author, FollowerCount: int64(FANS), LastActiveAt: now})
    var existing int64
    db.Model(&model.Fan{}).Where("user_id = ?", author).Count(&existing)
    if existing < int64(FANS) {
        for i := int(existing); i < FANS; i++ {
            fanID := fmt.Sprintf("bench-fan-%06d", i)
            _ = profileRepo.Save(ctx, &model.UserProfile{ID: fanID, Username: fanID, LastActiveAt: now})
            _ = fanRepo.Create(ctx, author, fanID)
        }
    }

    rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
    if err := rdb.Ping(ctx).Err(); err != nil { panic(err) }

    engine := service.NewFanoutEngine(
        repository.NewTimelineLogRepository(db),
        cache.NewTimelineCache(rdb, cfg.Timeline.CacheCapacity, cfg.Timeline.CacheTTL),
        fanRepo,
        profileRepo,
        repository.NewDeadLetterRepository(db),
        cfg.Timeline,
    )

    distribute := func(class model.AuthorClass) time.Duration {
        ref := model.PostRef{PostID: uuid.NewString(), AuthorID: author, CreatedAt: time.Now().UnixMilli()}
        st := time.Now()
        if err := engine.Distribute(ctx, ref, class); err != nil { fmt.Println("distribute:", err) }
        return time.Since(st)
    }

    regular := make([]time.Duration, 0, POSTS)
    celeb := make([]time.Duration, 0, POSTS)
    for i := 0; i < POSTS; i++ { regular = append(regular, distribute(model.ClassRegular)) }
    for i := 0; i < POSTS; i++ { celeb = append(celeb, distribute(model.ClassCelebrity)) }

    pct := func(vs []time.Duration, p float64) time.Duration {
        xs := append([]time.Duration(nil), vs...)
        sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
        k := int(float64(len(xs)) * p)
        if k < 0 { k = 0 }
        if k >= len(xs) { k = len(xs) - 1 }
        return xs[k]
    }
    avg := func(vs []time.Duration) time.Duration {
        var sum time.Duration
        for _, d := range vs { sum += d }
        return sum / time.Duration(len(vs))
    }

    fmt.Printf("FANS=%d POSTS=%d\n", FANS, POSTS)
    fmt.Printf("Regular fan-out (all %d fans): avg=%v p95=%v p99=%v\n", FANS, avg(regular), pct(regular, 0.95), pct(regular, 0.99))
    fmt.Printf("Celebrity fan-out (top %d active): avg=%v p95=%v p99=%v\n", cfg.Timeline.FanoutLimitCelebrity, avg(celeb), pct(celeb, 0.95), pct(celeb, 0.99))
}
