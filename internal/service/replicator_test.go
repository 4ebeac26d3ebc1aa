package service

import (
    "context"
    "fmt"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"

    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
)

type replicatorFixture struct {
    fans  repository.FanRepository
    log   repository.TimelineLogRepository
    cache *cache.TimelineCache
    rep   *GraphReplicator
}

func setupReplicator(t *testing.T) *replicatorFixture {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(&model.Fan{}, &model.TimelineEntry{}))

    mr := miniredis.RunT(t)
    client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = client.Close() })

    f := &replicatorFixture{
        fans:  repository.NewFanRepository(db),
        log:   repository.NewTimelineLogRepository(db),
        cache: cache.NewTimelineCache(client, 800, time.Hour),
    }
    f.rep = NewGraphReplicator(f.fans, f.log, f.cache, 24*time.Hour, 100)
    return f
}

func TestFollowBackfillsRecentPosts(t *testing.T) {
    f := setupReplicator(t)
    ctx := context.Background()
    now := time.Now().UnixMilli()

    // 作者自有 log 里已有 3 条近期帖
    for i := 1; i <= 3; i++ {
        ref := model.PostRef{PostID: fmt.Sprintf("p%d", i), AuthorID: "author-1", CreatedAt: now - int64(i)*1000}
        require.NoError(t, f.log.Append(ctx, "author-1", ref))
    }

    f.rep.apply(ctx, graphJob{action: graphFollow, authorID: "author-1", followerID: "follower-1"})

    // 粉丝冗余边已建
    n, err := f.fans.CountFans(ctx, "author-1")
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)

    // 近期帖回填进了新粉丝的 log 与 cache
    refs, err := f.log.Range(ctx, "follower-1", nil, 10)
    require.NoError(t, err)
    assert.Len(t, refs, 3)
    cached, err := f.cache.Range(ctx, "follower-1", nil, 10)
    require.NoError(t, err)
    assert.Len(t, cached, 3)
}

func TestUnfollowPrunesCachedAuthor(t *testing.T) {
    f := setupReplicator(t)
    ctx := context.Background()
    now := time.Now().UnixMilli()

    require.NoError(t, f.fans.Create(ctx, "author-1", "follower-1"))
    keep := model.PostRef{PostID: "p-keep", AuthorID: "author-2", CreatedAt: now - 500}
    drop := model.PostRef{PostID: "p-drop", AuthorID: "author-1", CreatedAt: now - 400}
    require.NoError(t, f.cache.Append(ctx, "follower-1", keep))
    require.NoError(t, f.cache.Append(ctx, "follower-1", drop))

    f.rep.apply(ctx, graphJob{action: graphUnfollow, authorID: "author-1", followerID: "follower-1"})

    n, err := f.fans.CountFans(ctx, "author-1")
    require.NoError(t, err)
    assert.Zero(t, n)

    cached, err := f.cache.Range(ctx, "follower-1", nil, 10)
    require.NoError(t, err)
    require.Len(t, cached, 1)
    assert.Equal(t, "p-keep", cached[0].PostID)
}

func TestReplicatorQueueDrain(t *testing.T) {
    f := setupReplicator(t)
    stop := f.rep.Start(2)

    for i := 0; i < 5; i++ {
        f.rep.EnqueueFollow("author-1", fmt.Sprintf("follower-%d", i))
    }
    require.NoError(t, stop(context.Background()))

    require.Eventually(t, func() bool {
        n, err := f.fans.CountFans(context.Background(), "author-1")
        return err == nil && n == 5
    }, 2*time.Second, 10*time.Millisecond)
}
