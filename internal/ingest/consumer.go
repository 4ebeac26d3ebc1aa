package ingest

import (
    "context"
    "encoding/json"
    "time"

    "github.com/nats-io/nats.go"
    "go.uber.org/zap"

    "github.com/d60-Lab/home-timeline/internal/metrics"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

// Distributor 扇出引擎的消费者侧视角
type Distributor interface {
    Distribute(ctx context.Context, ref model.PostRef, class model.AuthorClass) error
}

// WriteClassifier 写路径分级（不确定时 regular 全量扇出）
type WriteClassifier interface {
    ClassifyForWrite(ctx context.Context, authorID string) model.AuthorClass
}

// Consumer 消费 post.created 事件驱动扇出。
// 扇出完成（或死信已落）才 ack，位点语义 at-least-once；
// 下游 cache/log 幂等，容忍重复投递。
type Consumer struct {
    nc       *nats.Conn
    subject  string
    durable  string
    classify WriteClassifier
    engine   Distributor
    budget   time.Duration // 写路径后台预算，不携带客户端 deadline

    sub *nats.Subscription
}

func NewConsumer(nc *nats.Conn, subject, durable string, classify WriteClassifier, engine Distributor, budget time.Duration) *Consumer {
    if budget <= 0 {
        budget = 30 * time.Second
    }
    return &Consumer{nc: nc, subject: subject, durable: durable, classify: classify, engine: engine, budget: budget}
}

// Start 建立 durable 订阅；返回停止函数
func (c *Consumer) Start() (func(ctx context.Context) error, error) {
    js, err := c.nc.JetStream()
    if err != nil {
        return nil, err
    }
    sub, err := js.Subscribe(c.subject, c.handle,
        nats.Durable(c.durable),
        nats.ManualAck(),
        nats.AckExplicit(),
        nats.DeliverAll(),
        nats.MaxAckPending(256),
    )
    if err != nil {
        return nil, err
    }
    c.sub = sub
    return func(ctx context.Context) error { return sub.Drain() }, nil
}

func (c *Consumer) handle(msg *nats.Msg) {
    ctx, cancel := context.WithTimeout(context.Background(), c.budget)
    defer cancel()

    err := c.Process(ctx, msg.Data)
    switch {
    case err == nil:
        metrics.IngestEvents.WithLabelValues("ok").Inc()
        _ = msg.Ack()
    case err == errMalformedEvent:
        // 毒消息：ack 丢弃，重投无意义
        metrics.IngestEvents.WithLabelValues("malformed").Inc()
        _ = msg.Ack()
    default:
        // 作者自有 log 没写进去，留待重投
        metrics.IngestEvents.WithLabelValues("retry").Inc()
        _ = msg.Nak()
    }
}

var errMalformedEvent = errMalformed{}

type errMalformed struct{}

func (errMalformed) Error() string { return "malformed post-created event" }

// Process 解码事件并驱动分级 + 扇出；独立出来便于单测
func (c *Consumer) Process(ctx context.Context, data []byte) error {
    var ev PostCreatedEvent
    if err := json.Unmarshal(data, &ev); err != nil || ev.PostID == "" || ev.AuthorID == "" || ev.CreatedAt <= 0 {
        logger.Warn("ingest malformed event", zap.ByteString("data", data))
        return errMalformedEvent
    }
    class := c.classify.ClassifyForWrite(ctx, ev.AuthorID)
    if err := c.engine.Distribute(ctx, ev.Ref(), class); err != nil {
        logger.Error("ingest distribute failed",
            zap.String("post", ev.PostID), zap.String("class", class.String()), zap.Error(err))
        return err
    }
    return nil
}
