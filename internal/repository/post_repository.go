package repository

import (
    "context"
    "fmt"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// PostRepository 外部 post store 的访问面：发帖适配器写入，水合器批量读取
type PostRepository interface {
    Create(ctx context.Context, post *model.Post) error
    // GetByIDs 批量查询；缺失的帖子不在结果中（可能已删除）
    GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
    err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(post).Error
    if err != nil {
        return fmt.Errorf("%w: %v", ErrPostStoreUnavailable, err)
    }
    return nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error) {
    if len(ids) == 0 {
        return map[string]*model.Post{}, nil
    }
    var rows []*model.Post
    if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
        return nil, fmt.Errorf("%w: %v", ErrPostStoreUnavailable, err)
    }
    out := make(map[string]*model.Post, len(rows))
    for _, p := range rows {
        out[p.ID] = p
    }
    return out, nil
}
