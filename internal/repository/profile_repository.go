package repository

import (
    "context"
    "fmt"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// ProfileRepository 外部 profile store 的访问面：粉丝数、活跃时间、展示信息
type ProfileRepository interface {
    // GetByIDs 批量读画像；分级与水合都经本地缓存走这条路
    GetByIDs(ctx context.Context, ids []string) (map[string]*model.UserProfile, error)
    // TopActiveFans 按 last_active_at 降序取 authorID 的活跃粉丝，celebrity 扇出选集
    TopActiveFans(ctx context.Context, authorID string, activeSinceMs int64, limit int) ([]string, error)
    // Touch 刷新 last_active_at（读时间线视为活跃）
    Touch(ctx context.Context, userID string, atMs int64) error
    Save(ctx context.Context, profile *model.UserProfile) error
}

type profileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &profileRepository{db: db} }

func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.UserProfile, error) {
    if len(ids) == 0 {
        return map[string]*model.UserProfile{}, nil
    }
    var rows []*model.UserProfile
    if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
        return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
    }
    out := make(map[string]*model.UserProfile, len(rows))
    for _, p := range rows {
        out[p.ID] = p
    }
    return out, nil
}

func (r *profileRepository) TopActiveFans(ctx context.Context, authorID string, activeSinceMs int64, limit int) ([]string, error) {
    var ids []string
    err := r.db.WithContext(ctx).
        Table("fans").
        Select("fans.fan_id").
        Joins("JOIN user_profiles ON user_profiles.id = fans.fan_id").
        Where("fans.user_id = ? AND user_profiles.last_active_at >= ?", authorID, activeSinceMs).
        Order("user_profiles.last_active_at DESC").
        Limit(limit).
        Scan(&ids).Error
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
    }
    return ids, nil
}

func (r *profileRepository) Touch(ctx context.Context, userID string, atMs int64) error {
    return r.db.WithContext(ctx).Model(&model.UserProfile{}).
        Where("id = ? AND last_active_at < ?", userID, atMs).
        Update("last_active_at", atMs).Error
}

func (r *profileRepository) Save(ctx context.Context, profile *model.UserProfile) error {
    return r.db.WithContext(ctx).Clauses(clause.OnConflict{
        Columns:   []clause.Column{{Name: "id"}},
        UpdateAll: true,
    }).Create(profile).Error
}
