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

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
)

type fanoutFixture struct {
    db       *gorm.DB
    engine   *FanoutEngine
    log      repository.TimelineLogRepository
    cache    *cache.TimelineCache
    fans     repository.FanRepository
    profiles repository.ProfileRepository
    letters  repository.DeadLetterRepository
    cfg      config.Timeline
}

func setupFanout(t *testing.T, cfg config.Timeline) *fanoutFixture {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(
        &model.UserProfile{}, &model.Fan{}, &model.TimelineEntry{}, &model.DeadLetter{},
    ))

    mr := miniredis.RunT(t)
    client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = client.Close() })

    f := &fanoutFixture{
        db:       db,
        log:      repository.NewTimelineLogRepository(db),
        cache:    cache.NewTimelineCache(client, 800, time.Hour),
        fans:     repository.NewFanRepository(db),
        profiles: repository.NewProfileRepository(db),
        letters:  repository.NewDeadLetterRepository(db),
        cfg:      cfg,
    }
    f.engine = NewFanoutEngine(f.log, f.cache, f.fans, f.profiles, f.letters, cfg)
    return f
}

// seedFans 建 author 的 n 个粉丝，前 active 个在活跃窗口内
func (f *fanoutFixture) seedFans(t *testing.T, author string, n, active int) []string {
    t.Helper()
    ctx := context.Background()
    now := time.Now().UnixMilli()
    stale := time.Now().Add(-f.cfg.ActiveWindow - time.Hour).UnixMilli()
    ids := make([]string, n)
    for i := 0; i < n; i++ {
        id := fmt.Sprintf("fan-%03d", i)
        ids[i] = id
        lastActive := stale
        if i < active {
            // 递减保持活跃排名稳定：fan-000 最活跃
            lastActive = now - int64(i)*1000
        }
        require.NoError(t, f.profiles.Save(ctx, &model.UserProfile{ID: id, Username: id, LastActiveAt: lastActive}))
        require.NoError(t, f.fans.Create(ctx, author, id))
    }
    return ids
}

func (f *fanoutFixture) logSize(t *testing.T, owner string) int64 {
    t.Helper()
    n, err := f.log.Size(context.Background(), owner)
    require.NoError(t, err)
    return n
}

func (f *fanoutFixture) cacheSize(t *testing.T, owner string) int64 {
    t.Helper()
    n, err := f.cache.Size(context.Background(), owner)
    require.NoError(t, err)
    return n
}

func TestDistributeRegular(t *testing.T) {
    f := setupFanout(t, testTimelineCfg())
    ids := f.seedFans(t, "author-1", 10, 6)
    ctx := context.Background()

    ref := model.PostRef{PostID: "p1", AuthorID: "author-1", CreatedAt: time.Now().UnixMilli()}
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassRegular))

    // log：全部粉丝 + 作者自己
    for _, id := range ids {
        assert.Equal(t, int64(1), f.logSize(t, id), "log owner %s", id)
    }
    assert.Equal(t, int64(1), f.logSize(t, "author-1"))

    // cache：只有活跃粉丝
    for i, id := range ids {
        want := int64(0)
        if i < 6 {
            want = 1
        }
        assert.Equal(t, want, f.cacheSize(t, id), "cache owner %s", id)
    }
}

func TestDistributeCelebrityTopActive(t *testing.T) {
    cfg := testTimelineCfg()
    cfg.FanoutLimitCelebrity = 3
    f := setupFanout(t, cfg)
    ids := f.seedFans(t, "star", 10, 8)
    ctx := context.Background()

    ref := model.PostRef{PostID: "p1", AuthorID: "star", CreatedAt: time.Now().UnixMilli()}
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassCelebrity))

    // 作者自有 log 必达：pull 路径的依据
    assert.Equal(t, int64(1), f.logSize(t, "star"))

    // 只有活跃度前 3 的粉丝被推送，cache+log 双写
    pushed := int64(0)
    for _, id := range ids {
        n := f.logSize(t, id)
        assert.Equal(t, n, f.cacheSize(t, id), "cache/log mismatch for %s", id)
        pushed += n
    }
    assert.Equal(t, int64(3), pushed)
    // 最活跃的 fan-000 一定入选
    assert.Equal(t, int64(1), f.logSize(t, "fan-000"))
}

func TestDistributeMegaUsesSmallerLimit(t *testing.T) {
    cfg := testTimelineCfg()
    cfg.FanoutLimitCelebrity = 5
    cfg.FanoutLimitMega = 2
    f := setupFanout(t, cfg)
    ids := f.seedFans(t, "star", 8, 8)
    ctx := context.Background()

    ref := model.PostRef{PostID: "p1", AuthorID: "star", CreatedAt: time.Now().UnixMilli()}
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassMegaCelebrity))

    pushed := int64(0)
    for _, id := range ids {
        pushed += f.logSize(t, id)
    }
    assert.Equal(t, int64(2), pushed)
}

func TestDistributeDuplicateIdempotent(t *testing.T) {
    f := setupFanout(t, testTimelineCfg())
    ids := f.seedFans(t, "author-1", 5, 5)
    ctx := context.Background()

    ref := model.PostRef{PostID: "p1", AuthorID: "author-1", CreatedAt: time.Now().UnixMilli()}
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassRegular))
    // at-least-once 投递下的重复事件
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassRegular))

    for _, id := range ids {
        assert.Equal(t, int64(1), f.logSize(t, id))
        assert.Equal(t, int64(1), f.cacheSize(t, id))
    }
    assert.Equal(t, int64(1), f.logSize(t, "author-1"))
}

// brokenFanRepo 粉丝枚举持续失败的 graph store
type brokenFanRepo struct {
    repository.FanRepository
}

func (brokenFanRepo) ListFans(ctx context.Context, userID string, offset, limit int) ([]*model.Fan, error) {
    return nil, errFanStoreDown
}

var errFanStoreDown = fmt.Errorf("fan store down")

func TestDistributeRegularEnumerationFailure(t *testing.T) {
    cfg := testTimelineCfg()
    cfg.FanoutMaxAttempts = 1
    f := setupFanout(t, cfg)
    engine := NewFanoutEngine(f.log, f.cache, brokenFanRepo{}, f.profiles, f.letters, cfg)
    ctx := context.Background()

    ref := model.PostRef{PostID: "p1", AuthorID: "author-1", CreatedAt: time.Now().UnixMilli()}
    // regular 作者没有 pull 兜底：枚举失败必须报错，消费侧才会 Nak 重投
    err := engine.Distribute(ctx, ref, model.ClassRegular)
    require.ErrorIs(t, err, errFanStoreDown)

    // 自有 log 已写，重投后按 (owner_id, post_id) 幂等
    assert.Equal(t, int64(1), f.logSize(t, "author-1"))
    require.NoError(t, engine.Distribute(ctx, ref, model.ClassCelebrity))
    assert.Equal(t, int64(1), f.logSize(t, "author-1"))
}

func TestDistributeNoFans(t *testing.T) {
    f := setupFanout(t, testTimelineCfg())
    ctx := context.Background()
    require.NoError(t, f.profiles.Save(ctx, &model.UserProfile{ID: "loner", Username: "loner"}))

    ref := model.PostRef{PostID: "p1", AuthorID: "loner", CreatedAt: time.Now().UnixMilli()}
    require.NoError(t, f.engine.Distribute(ctx, ref, model.ClassRegular))

    // 自有 log 仍要写，自己的主页才能看到
    assert.Equal(t, int64(1), f.logSize(t, "loner"))
}
