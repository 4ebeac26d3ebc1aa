package service

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"

    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/repository"
)

// EventPublisher 发帖事件出口（ingest bus 的写端）
type EventPublisher interface {
    PublishPostCreated(ctx context.Context, ref model.PostRef, mediaCount int) error
}

// Publisher 发帖适配器：先落地 post store，再发布 post.created 事件。
// 本服务不拥有帖子存储，只是薄适配层。
type Publisher struct {
    posts repository.PostRepository
    bus   EventPublisher
}

func NewPublisher(posts repository.PostRepository, bus EventPublisher) *Publisher {
    return &Publisher{posts: posts, bus: bus}
}

// Publish 落地 Post 并发布事件；created_at 在此一次性赋值，下游不再生成
func (p *Publisher) Publish(ctx context.Context, authorID, text string, mediaURLs []string) (string, error) {
    postID := uuid.New().String()
    now := time.Now().UnixMilli()

    media := ""
    if len(mediaURLs) > 0 {
        raw, err := json.Marshal(mediaURLs)
        if err != nil {
            return "", err
        }
        media = string(raw)
    }
    post := &model.Post{ID: postID, AuthorID: authorID, Text: text, MediaURLs: media, CreatedAt: now}
    if err := p.posts.Create(ctx, post); err != nil {
        return "", err
    }
    if err := p.bus.PublishPostCreated(ctx, post.Ref(), len(mediaURLs)); err != nil {
        // 帖子已持久化，事件发布失败交给调用方重试
        return "", err
    }
    return postID, nil
}
