package service

import (
    "context"
    "encoding/json"
    "sync"

    "go.uber.org/zap"

    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

// AuthorSummary 水合后的作者展示信息
type AuthorSummary struct {
    ID          string `json:"id"`
    DisplayName string `json:"display_name"`
    AvatarURL   string `json:"avatar,omitempty"`
}

// HydratedPost 返回给客户端的完整帖子
type HydratedPost struct {
    PostID    string        `json:"post_id"`
    Author    AuthorSummary `json:"author"`
    Text      string        `json:"text"`
    Media     []string      `json:"media,omitempty"`
    CreatedAt int64         `json:"created_at"`
}

// Hydrator 把引用展开为完整帖子：post store 与 profile store 各一次批量查询，
// 本地 join。引用与水合之间帖子可能已删除，缺失记录丢弃并记日志，绝不
// 因单条缺失失败整个响应。
type Hydrator struct {
    posts    repository.PostRepository
    profiles *cache.ProfileCache
}

func NewHydrator(posts repository.PostRepository, profiles *cache.ProfileCache) *Hydrator {
    return &Hydrator{posts: posts, profiles: profiles}
}

func (h *Hydrator) Hydrate(ctx context.Context, refs []model.PostRef) ([]HydratedPost, error) {
    if len(refs) == 0 {
        return []HydratedPost{}, nil
    }
    postIDs := make([]string, len(refs))
    authorSet := make(map[string]struct{})
    for i, r := range refs {
        postIDs[i] = r.PostID
        authorSet[r.AuthorID] = struct{}{}
    }
    authorIDs := make([]string, 0, len(authorSet))
    for id := range authorSet {
        authorIDs = append(authorIDs, id)
    }

    // 两路批量查询并行发出
    var wg sync.WaitGroup
    var posts map[string]*model.Post
    var profiles map[string]*model.UserProfile
    var postErr, profErr error
    wg.Add(2)
    go func() {
        defer wg.Done()
        posts, postErr = h.posts.GetByIDs(ctx, postIDs)
    }()
    go func() {
        defer wg.Done()
        profiles, profErr = h.profiles.GetBatch(ctx, authorIDs)
    }()
    wg.Wait()
    if postErr != nil {
        return nil, postErr
    }
    if profErr != nil {
        // 作者信息整体取不到时仍返回帖子本体，展示层降级
        logger.Warn("hydrate profiles unavailable", zap.Error(profErr))
        profiles = map[string]*model.UserProfile{}
    }

    out := make([]HydratedPost, 0, len(refs))
    for _, r := range refs {
        p, ok := posts[r.PostID]
        if !ok {
            // 引用与水合之间被删除
            logger.Info("hydrate drop missing post", zap.String("post", r.PostID))
            continue
        }
        hp := HydratedPost{
            PostID:    p.ID,
            Text:      p.Text,
            Media:     decodeMedia(p.MediaURLs),
            CreatedAt: p.CreatedAt,
            Author:    AuthorSummary{ID: p.AuthorID},
        }
        if prof, ok := profiles[p.AuthorID]; ok {
            hp.Author.DisplayName = prof.Username
            hp.Author.AvatarURL = prof.AvatarURL
        }
        out = append(out, hp)
    }
    return out, nil
}

func decodeMedia(raw string) []string {
    if raw == "" {
        return nil
    }
    var urls []string
    if err := json.Unmarshal([]byte(raw), &urls); err != nil {
        return nil
    }
    return urls
}
