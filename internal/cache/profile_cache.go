package cache

import (
    "context"
    "sync"
    "time"

    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
)

// ProfileCache is a short-TTL in-process map over the profile store. Minutes of
// staleness is acceptable for follower counts and activity timestamps, so reads
// take the cached row until it expires. The request path only reads; expired
// entries are reloaded on demand.
type ProfileCache struct {
    repo repository.ProfileRepository
    ttl  time.Duration

    mu      sync.RWMutex
    entries map[string]profileEntry
}

type profileEntry struct {
    profile  *model.UserProfile
    loadedAt time.Time
}

func NewProfileCache(repo repository.ProfileRepository, ttl time.Duration) *ProfileCache {
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }
    return &ProfileCache{repo: repo, ttl: ttl, entries: make(map[string]profileEntry)}
}

// Get returns the cached profile or loads it through the store.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
    c.mu.RLock()
    e, ok := c.entries[userID]
    c.mu.RUnlock()
    if ok && time.Since(e.loadedAt) < c.ttl {
        return e.profile, nil
    }
    loaded, err := c.repo.GetByIDs(ctx, []string{userID})
    if err != nil {
        return nil, err
    }
    p, ok := loaded[userID]
    if !ok {
        return nil, repository.ErrProfileUnavailable
    }
    c.put(userID, p)
    return p, nil
}

// GetBatch resolves many ids, loading only the expired or missing ones.
func (c *ProfileCache) GetBatch(ctx context.Context, userIDs []string) (map[string]*model.UserProfile, error) {
    out := make(map[string]*model.UserProfile, len(userIDs))
    missing := make([]string, 0)
    c.mu.RLock()
    for _, id := range userIDs {
        if e, ok := c.entries[id]; ok && time.Since(e.loadedAt) < c.ttl {
            out[id] = e.profile
        } else {
            missing = append(missing, id)
        }
    }
    c.mu.RUnlock()
    if len(missing) == 0 {
        return out, nil
    }
    loaded, err := c.repo.GetByIDs(ctx, missing)
    if err != nil {
        return nil, err
    }
    for id, p := range loaded {
        out[id] = p
        c.put(id, p)
    }
    return out, nil
}

func (c *ProfileCache) put(userID string, p *model.UserProfile) {
    c.mu.Lock()
    c.entries[userID] = profileEntry{profile: p, loadedAt: time.Now()}
    c.mu.Unlock()
}

// StartRefresh re-resolves cached entries in the background so the request path
// never blocks on expiry storms. Returns a stop function.
func (c *ProfileCache) StartRefresh(interval time.Duration) func() {
    if interval <= 0 {
        interval = time.Minute
    }
    stop := make(chan struct{})
    go func() {
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-stop:
                return
            case <-ticker.C:
                c.refreshOnce()
            }
        }
    }()
    return func() { close(stop) }
}

func (c *ProfileCache) refreshOnce() {
    c.mu.RLock()
    ids := make([]string, 0, len(c.entries))
    for id, e := range c.entries {
        if time.Since(e.loadedAt) >= c.ttl/2 {
            ids = append(ids, id)
        }
    }
    c.mu.RUnlock()
    if len(ids) == 0 {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    loaded, err := c.repo.GetByIDs(ctx, ids)
    if err != nil {
        return
    }
    for id, p := range loaded {
        c.put(id, p)
    }
}
