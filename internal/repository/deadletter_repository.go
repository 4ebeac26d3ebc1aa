package repository

import (
    "context"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// DeadLetterRepository 扇出死信落盘，供运维侧旁路排查
type DeadLetterRepository interface {
    Save(ctx context.Context, ownerID string, ref model.PostRef, reason string, attempts int) error
    List(ctx context.Context, limit int) ([]*model.DeadLetter, error)
}

type deadLetterRepository struct{ db *gorm.DB }

func NewDeadLetterRepository(db *gorm.DB) DeadLetterRepository {
    return &deadLetterRepository{db: db}
}

func (r *deadLetterRepository) Save(ctx context.Context, ownerID string, ref model.PostRef, reason string, attempts int) error {
    dl := &model.DeadLetter{
        ID:        uuid.New().String(),
        OwnerID:   ownerID,
        PostID:    ref.PostID,
        AuthorID:  ref.AuthorID,
        Reason:    reason,
        Attempts:  attempts,
        CreatedAt: time.Now(),
    }
    return r.db.WithContext(ctx).Create(dl).Error
}

func (r *deadLetterRepository) List(ctx context.Context, limit int) ([]*model.DeadLetter, error) {
    var rows []*model.DeadLetter
    err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
    return rows, err
}
