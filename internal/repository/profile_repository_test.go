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

func setupProfileDB(t *testing.T) *gorm.DB {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(&model.UserProfile{}, &model.Fan{}))
    return db
}

func TestTopActiveFans(t *testing.T) {
    db := setupProfileDB(t)
    repo := NewProfileRepository(db)
    fans := NewFanRepository(db)
    ctx := context.Background()

    // 5 个粉丝，活跃度递增；再加一个窗口外的
    for i := 1; i <= 5; i++ {
        id := fmt.Sprintf("fan-%d", i)
        require.NoError(t, repo.Save(ctx, &model.UserProfile{ID: id, Username: id, LastActiveAt: int64(i * 1000)}))
        require.NoError(t, fans.Create(ctx, "star", id))
    }
    require.NoError(t, repo.Save(ctx, &model.UserProfile{ID: "stale", Username: "stale", LastActiveAt: 10}))
    require.NoError(t, fans.Create(ctx, "star", "stale"))

    got, err := repo.TopActiveFans(ctx, "star", 1000, 3)
    require.NoError(t, err)
    // last_active_at 降序取前 3
    assert.Equal(t, []string{"fan-5", "fan-4", "fan-3"}, got)
}

func TestTouchMonotonic(t *testing.T) {
    db := setupProfileDB(t)
    repo := NewProfileRepository(db)
    ctx := context.Background()

    require.NoError(t, repo.Save(ctx, &model.UserProfile{ID: "u1", Username: "u1", LastActiveAt: 500}))
    // 更早的时间戳不回退
    require.NoError(t, repo.Touch(ctx, "u1", 100))
    ps, err := repo.GetByIDs(ctx, []string{"u1"})
    require.NoError(t, err)
    assert.Equal(t, int64(500), ps["u1"].LastActiveAt)

    require.NoError(t, repo.Touch(ctx, "u1", 900))
    ps, err = repo.GetByIDs(ctx, []string{"u1"})
    require.NoError(t, err)
    assert.Equal(t, int64(900), ps["u1"].LastActiveAt)
}
