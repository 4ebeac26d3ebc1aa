package repository

import (
    "context"
    "fmt"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"

    "github.com/d60-Lab/home-timeline/internal/model"
)

func setupLogDB(t *testing.T) *gorm.DB {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(&model.TimelineEntry{}))
    return db
}

func logRef(id string, ts int64) model.PostRef {
    return model.PostRef{PostID: id, AuthorID: "author-1", CreatedAt: ts}
}

func TestLogAppendIdempotent(t *testing.T) {
    repo := NewTimelineLogRepository(setupLogDB(t))
    ctx := context.Background()

    r := logRef("p1", 100)
    require.NoError(t, repo.Append(ctx, "u1", r))
    require.NoError(t, repo.Append(ctx, "u1", r))

    n, err := repo.Size(ctx, "u1")
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)
}

func TestLogRangeOrderAndCursor(t *testing.T) {
    repo := NewTimelineLogRepository(setupLogDB(t))
    ctx := context.Background()

    for i := 1; i <= 5; i++ {
        require.NoError(t, repo.Append(ctx, "u1", logRef(fmt.Sprintf("p%d", i), int64(i*100))))
    }
    // 同时间戳条目验证 post_id 降序
    require.NoError(t, repo.Append(ctx, "u1", logRef("p5b", 500)))

    refs, err := repo.Range(ctx, "u1", nil, 10)
    require.NoError(t, err)
    require.Len(t, refs, 6)
    assert.Equal(t, "p5b", refs[0].PostID)
    assert.Equal(t, "p5", refs[1].PostID)
    assert.Equal(t, "p1", refs[5].PostID)

    // 游标落在 (500, "p5b")：同分下 p5 仍应返回
    refs, err = repo.Range(ctx, "u1", &model.Cursor{CreatedAt: 500, PostID: "p5b"}, 10)
    require.NoError(t, err)
    require.Len(t, refs, 5)
    assert.Equal(t, "p5", refs[0].PostID)

    refs, err = repo.Range(ctx, "u1", &model.Cursor{CreatedAt: 300, PostID: "p3"}, 10)
    require.NoError(t, err)
    require.Len(t, refs, 2)
    assert.Equal(t, "p2", refs[0].PostID)
    assert.Equal(t, "p1", refs[1].PostID)
}

func TestLogAppendBatch(t *testing.T) {
    repo := NewTimelineLogRepository(setupLogDB(t))
    ctx := context.Background()

    owners := []string{"u1", "u2", "u3"}
    require.NoError(t, repo.AppendBatch(ctx, owners, logRef("p1", 100)))
    // 重复整批投递也应幂等
    require.NoError(t, repo.AppendBatch(ctx, owners, logRef("p1", 100)))

    for _, owner := range owners {
        n, err := repo.Size(ctx, owner)
        require.NoError(t, err)
        assert.Equal(t, int64(1), n, "owner %s", owner)
    }
}

func TestLogRangeAuthor(t *testing.T) {
    repo := NewTimelineLogRepository(setupLogDB(t))
    ctx := context.Background()

    // 作者自有 log：owner == author
    for i := 1; i <= 3; i++ {
        require.NoError(t, repo.Append(ctx, "author-1", logRef(fmt.Sprintf("p%d", i), int64(i*100))))
    }
    // 他人的帖子进了同一用户的 log，不应被 RangeAuthor 选中
    other := model.PostRef{PostID: "px", AuthorID: "author-2", CreatedAt: 250}
    require.NoError(t, repo.Append(ctx, "author-1", other))

    refs, err := repo.RangeAuthor(ctx, "author-1", 0, 10)
    require.NoError(t, err)
    require.Len(t, refs, 3)
    assert.Equal(t, "p3", refs[0].PostID)

    // since 过滤更早的帖子
    refs, err = repo.RangeAuthor(ctx, "author-1", 200, 10)
    require.NoError(t, err)
    require.Len(t, refs, 2)
}

func setupShardedRepo(t *testing.T, n int) TimelineLogRepository {
    t.Helper()
    shards := make([]*gorm.DB, n)
    for i := range shards {
        shards[i] = setupLogDB(t)
    }
    return NewShardedLogRepository(shards)
}

func TestShardedRoutingStable(t *testing.T) {
    repo := setupShardedRepo(t, 4)
    ctx := context.Background()

    // 写读走同一路由：每个 owner 的数据必须可见
    owners := make([]string, 20)
    for i := range owners {
        owners[i] = fmt.Sprintf("user-%02d", i)
    }
    require.NoError(t, repo.AppendBatch(ctx, owners, logRef("p1", 100)))

    for _, owner := range owners {
        refs, err := repo.Range(ctx, owner, nil, 10)
        require.NoError(t, err)
        require.Len(t, refs, 1, "owner %s", owner)
    }
}

func TestShardedRangeAuthorScatterGather(t *testing.T) {
    repo := setupShardedRepo(t, 4)
    ctx := context.Background()

    for i := 1; i <= 6; i++ {
        require.NoError(t, repo.Append(ctx, "author-1", logRef(fmt.Sprintf("p%d", i), int64(i*100))))
    }

    refs, err := repo.RangeAuthor(ctx, "author-1", 0, 4)
    require.NoError(t, err)
    require.Len(t, refs, 4)
    assert.Equal(t, "p6", refs[0].PostID)
    assert.Equal(t, "p3", refs[3].PostID)
}
