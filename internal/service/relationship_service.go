package service

import (
    "context"
    "errors"

    "github.com/d60-Lab/home-timeline/internal/repository"
)

var (
    ErrFollowSelf = errors.New("cannot follow self")
)

// RelationshipService 关系链服务；粉丝冗余与时间线收尾经 GraphReplicator 异步处理
type RelationshipService interface {
    Follow(ctx context.Context, fromUserID, toUserID string) error
    Unfollow(ctx context.Context, fromUserID, toUserID string) error
    ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
    ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error)
}

type relationshipService struct {
    followRepo repository.FollowRepository
    fanRepo    repository.FanRepository
    replicator *GraphReplicator
}

func NewRelationshipService(followRepo repository.FollowRepository, fanRepo repository.FanRepository, replicator *GraphReplicator) RelationshipService {
    return &relationshipService{followRepo: followRepo, fanRepo: fanRepo, replicator: replicator}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
    if fromUserID == toUserID {
        return ErrFollowSelf
    }
    if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
        return err
    }
    if s.replicator != nil {
        s.replicator.EnqueueFollow(toUserID, fromUserID)
    }
    return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
    if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
        return err
    }
    if s.replicator != nil {
        s.replicator.EnqueueUnfollow(toUserID, fromUserID)
    }
    return nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 10
    }
    offset := (page - 1) * pageSize
    items, err := s.followRepo.ListFollowingPage(ctx, userID, offset, pageSize)
    if err != nil {
        return nil, err
    }
    res := make([]string, len(items))
    for i, it := range items {
        res[i] = it.FolloweeID
    }
    return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 10
    }
    offset := (page - 1) * pageSize
    items, err := s.fanRepo.ListFans(ctx, userID, offset, pageSize)
    if err != nil {
        return nil, err
    }
    res := make([]string, len(items))
    for i, it := range items {
        res[i] = it.FanID
    }
    return res, nil
}
