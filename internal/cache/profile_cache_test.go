package cache

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/home-timeline/internal/model"
)

type countingProfileRepo struct {
    profiles map[string]*model.UserProfile
    calls    int
}

func (r *countingProfileRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.UserProfile, error) {
    r.calls++
    out := make(map[string]*model.UserProfile)
    for _, id := range ids {
        if p, ok := r.profiles[id]; ok {
            out[id] = p
        }
    }
    return out, nil
}

func (r *countingProfileRepo) TopActiveFans(ctx context.Context, authorID string, activeSinceMs int64, limit int) ([]string, error) {
    return nil, nil
}

func (r *countingProfileRepo) Touch(ctx context.Context, userID string, atMs int64) error { return nil }

func (r *countingProfileRepo) Save(ctx context.Context, profile *model.UserProfile) error {
    r.profiles[profile.ID] = profile
    return nil
}

func TestProfileCacheLoadsOnce(t *testing.T) {
    repo := &countingProfileRepo{profiles: map[string]*model.UserProfile{
        "u1": {ID: "u1", FollowerCount: 7},
    }}
    pc := NewProfileCache(repo, time.Minute)
    ctx := context.Background()

    p, err := pc.Get(ctx, "u1")
    require.NoError(t, err)
    assert.Equal(t, int64(7), p.FollowerCount)

    // TTL 内命中本地缓存
    _, err = pc.Get(ctx, "u1")
    require.NoError(t, err)
    assert.Equal(t, 1, repo.calls)
}

func TestProfileCacheBatchLoadsMissingOnly(t *testing.T) {
    repo := &countingProfileRepo{profiles: map[string]*model.UserProfile{
        "u1": {ID: "u1"}, "u2": {ID: "u2"}, "u3": {ID: "u3"},
    }}
    pc := NewProfileCache(repo, time.Minute)
    ctx := context.Background()

    _, err := pc.Get(ctx, "u1")
    require.NoError(t, err)

    out, err := pc.GetBatch(ctx, []string{"u1", "u2", "u3"})
    require.NoError(t, err)
    assert.Len(t, out, 3)
    // u1 已缓存，第二次查询只补 u2/u3
    assert.Equal(t, 2, repo.calls)
}
