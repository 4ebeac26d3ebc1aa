package service

import (
    "context"

    "go.uber.org/zap"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

// Classifier 按当前粉丝数给作者分级；profile 读数走短 TTL 本地缓存，
// 分钟级陈旧可接受
type Classifier struct {
    profiles *cache.ProfileCache
    cfg      config.Timeline
}

func NewClassifier(profiles *cache.ProfileCache, cfg config.Timeline) *Classifier {
    return &Classifier{profiles: profiles, cfg: cfg}
}

// Classify 正常分级；profile 不可用时返回错误由调用方决定兜底方向
func (c *Classifier) Classify(ctx context.Context, authorID string) (model.AuthorClass, error) {
    p, err := c.profiles.Get(ctx, authorID)
    if err != nil {
        return model.ClassRegular, err
    }
    return model.ClassifyCount(p.FollowerCount, c.cfg.CelebrityThreshold, c.cfg.MegaCelebrityThreshold), nil
}

// ClassifyForWrite 写路径兜底：不确定时按 regular 全量扇出
func (c *Classifier) ClassifyForWrite(ctx context.Context, authorID string) model.AuthorClass {
    cls, err := c.Classify(ctx, authorID)
    if err != nil {
        logger.Warn("classifier fallback on write", zap.String("author", authorID), zap.Error(err))
        return model.ClassRegular
    }
    return cls
}

// ClassifyForRead 读路径兜底：不确定时按 mega celebrity 走 pull，宁可多拉不漏
func (c *Classifier) ClassifyForRead(ctx context.Context, authorID string) model.AuthorClass {
    cls, err := c.Classify(ctx, authorID)
    if err != nil {
        logger.Warn("classifier fallback on read", zap.String("author", authorID), zap.Error(err))
        return model.ClassMegaCelebrity
    }
    return cls
}
