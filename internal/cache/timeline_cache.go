package cache

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// ErrCacheUnavailable marks backing-store failures. Callers must treat this as a
// soft failure: the log path still has the data.
var ErrCacheUnavailable = errors.New("timeline cache unavailable")

// TimelineCache keeps a bounded, time-ordered set of post references per owner.
// Layout: one sorted set per owner, score = created_at (ms), member =
// "<post_id>|<author_id>". Identical refs map to the same member, so repeated
// appends are naturally idempotent. For equal scores Redis orders members
// lexicographically, which under reverse iteration yields post_id descending —
// the same tie-break the log uses.
type TimelineCache struct {
    client   *redis.Client
    capacity int64
    ttl      time.Duration
}

func NewTimelineCache(client *redis.Client, capacity int64, ttl time.Duration) *TimelineCache {
    if capacity <= 0 {
        capacity = 800
    }
    if ttl <= 0 {
        ttl = 24 * time.Hour
    }
    return &TimelineCache{client: client, capacity: capacity, ttl: ttl}
}

func timelineKey(ownerID string) string { return "timeline:" + ownerID }

// member encodes one entry as "post_id|author_id". Redis breaks equal-score
// ties by member lexicographic order, which matches ordering by post_id only
// because ids are fixed-length uuids; variable-length ids would need a
// fixed-width encoding here.
func member(ref model.PostRef) string { return ref.PostID + "|" + ref.AuthorID }

func parseMember(m string, score float64) (model.PostRef, bool) {
    parts := strings.SplitN(m, "|", 2)
    if len(parts) != 2 {
        return model.PostRef{}, false
    }
    return model.PostRef{PostID: parts[0], AuthorID: parts[1], CreatedAt: int64(score)}, true
}

// Append inserts the ref, trims the set to capacity and refreshes the owner TTL,
// all in a single pipeline round trip.
func (c *TimelineCache) Append(ctx context.Context, ownerID string, ref model.PostRef) error {
    return c.AppendBatch(ctx, []string{ownerID}, ref)
}

// AppendBatch fans one ref out to many owners. One pipeline per call; the fan-out
// engine chunks owner lists upstream so a single pipeline stays bounded.
func (c *TimelineCache) AppendBatch(ctx context.Context, ownerIDs []string, ref model.PostRef) error {
    if len(ownerIDs) == 0 {
        return nil
    }
    pipe := c.client.Pipeline()
    z := redis.Z{Score: float64(ref.CreatedAt), Member: member(ref)}
    for _, owner := range ownerIDs {
        key := timelineKey(owner)
        pipe.ZAdd(ctx, key, z)
        pipe.ZRemRangeByRank(ctx, key, 0, -(c.capacity + 1))
        pipe.Expire(ctx, key, c.ttl)
    }
    if _, err := pipe.Exec(ctx); err != nil {
        return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
    }
    return nil
}

// Range returns up to limit refs with created_at strictly below the cursor
// (newest first when cursor is nil). A missing owner key reads as empty: the
// caller falls back to the log.
func (c *TimelineCache) Range(ctx context.Context, ownerID string, cursor *model.Cursor, limit int) ([]model.PostRef, error) {
    max := "+inf"
    if cursor != nil {
        max = fmt.Sprintf("(%d", cursor.CreatedAt)
    }
    zs, err := c.client.ZRevRangeByScoreWithScores(ctx, timelineKey(ownerID), &redis.ZRangeBy{
        Min:   "-inf",
        Max:   max,
        Count: int64(limit),
    }).Result()
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
    }
    refs := make([]model.PostRef, 0, len(zs))
    for _, z := range zs {
        m, ok := z.Member.(string)
        if !ok {
            continue
        }
        if ref, ok := parseMember(m, z.Score); ok {
            refs = append(refs, ref)
        }
    }
    return refs, nil
}

// RemoveAuthor drops every ref by the given author from the owner's set.
// Used on unfollow so stale posts stop surfacing before cache TTL.
func (c *TimelineCache) RemoveAuthor(ctx context.Context, ownerID, authorID string) error {
    key := timelineKey(ownerID)
    members, err := c.client.ZRange(ctx, key, 0, -1).Result()
    if err != nil {
        return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
    }
    suffix := "|" + authorID
    stale := make([]interface{}, 0)
    for _, m := range members {
        if strings.HasSuffix(m, suffix) {
            stale = append(stale, m)
        }
    }
    if len(stale) == 0 {
        return nil
    }
    if err := c.client.ZRem(ctx, key, stale...).Err(); err != nil {
        return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
    }
    return nil
}

// Size reports the cached entry count for assembler heuristics.
func (c *TimelineCache) Size(ctx context.Context, ownerID string) (int64, error) {
    n, err := c.client.ZCard(ctx, timelineKey(ownerID)).Result()
    if err != nil {
        return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
    }
    return n, nil
}
