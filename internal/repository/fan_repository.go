package repository

import (
    "context"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// FanRepository 粉丝冗余表；扇出引擎的接收者枚举路径
type FanRepository interface {
    Create(ctx context.Context, userID, fanID string) error
    Delete(ctx context.Context, userID, fanID string) error
    // ListFans 分页枚举 userID 的粉丝，扇出按批消费
    ListFans(ctx context.Context, userID string, offset, limit int) ([]*model.Fan, error)
    CountFans(ctx context.Context, userID string) (int64, error)
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, userID, fanID string) error {
    f := &model.Fan{ID: uuid.New().String(), UserID: userID, FanID: fanID}
    return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, userID, fanID string) error {
    return r.db.WithContext(ctx).Where("user_id = ? AND fan_id = ?", userID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, userID string, offset, limit int) ([]*model.Fan, error) {
    var res []*model.Fan
    // 固定按建立时间枚举，保证分页批次稳定
    err := r.db.WithContext(ctx).Where("user_id = ?", userID).
        Order("created_at ASC, id ASC").
        Offset(offset).Limit(limit).Find(&res).Error
    return res, err
}

func (r *fanRepository) CountFans(ctx context.Context, userID string) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.Fan{}).Where("user_id = ?", userID).Count(&cnt).Error
    return cnt, err
}
