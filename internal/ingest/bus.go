package ingest

import (
    "context"
    "encoding/json"

    "github.com/nats-io/nats.go"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// PostCreatedEvent ingest bus 上的发帖事件；按 author 分区有序，至少一次投递
type PostCreatedEvent struct {
    PostID     string `json:"post_id"`
    AuthorID   string `json:"author_id"`
    CreatedAt  int64  `json:"created_at"` // ms
    MediaCount int    `json:"media_count"`
}

// Ref 转为时间线引用
func (e PostCreatedEvent) Ref() model.PostRef {
    return model.PostRef{PostID: e.PostID, AuthorID: e.AuthorID, CreatedAt: e.CreatedAt}
}

// Bus JetStream 封装：stream 声明 + 发布端
type Bus struct {
    js      nats.JetStreamContext
    subject string
}

// NewBus 确保 stream 存在；subject 形如 post.created
func NewBus(nc *nats.Conn, stream, subject string) (*Bus, error) {
    js, err := nc.JetStream()
    if err != nil {
        return nil, err
    }
    _, err = js.AddStream(&nats.StreamConfig{
        Name:     stream,
        Subjects: []string{subject},
        Storage:  nats.FileStorage,
    })
    if err != nil && err != nats.ErrStreamNameAlreadyInUse {
        return nil, err
    }
    return &Bus{js: js, subject: subject}, nil
}

// PublishPostCreated 发帖适配器的出口；MsgId 取 post_id，broker 侧去重
func (b *Bus) PublishPostCreated(ctx context.Context, ref model.PostRef, mediaCount int) error {
    ev := PostCreatedEvent{PostID: ref.PostID, AuthorID: ref.AuthorID, CreatedAt: ref.CreatedAt, MediaCount: mediaCount}
    data, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    _, err = b.js.Publish(b.subject, data, nats.Context(ctx), nats.MsgId(ref.PostID))
    return err
}
