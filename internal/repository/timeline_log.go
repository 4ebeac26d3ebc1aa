package repository

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/home-timeline/internal/model"
)

// TimelineLogRepository 按用户持久化的时间线存储；cache 未命中或冷启动时的兜底读路径
type TimelineLogRepository interface {
    // Append 幂等落盘，(owner_id, post_id) 唯一键承接重复投递
    Append(ctx context.Context, ownerID string, ref model.PostRef) error
    // AppendBatch 同一引用写入一批 owner
    AppendBatch(ctx context.Context, ownerIDs []string, ref model.PostRef) error
    // Range 按 (created_at desc, post_id desc) 返回 cursor 之前的至多 limit 条
    Range(ctx context.Context, ownerID string, cursor *model.Cursor, limit int) ([]model.PostRef, error)
    // RangeAuthor 作者自有 log 切片，since 起新帖优先；celebrity pull 路径
    RangeAuthor(ctx context.Context, authorID string, sinceMs int64, limit int) ([]model.PostRef, error)
    // Size owner 当前条数
    Size(ctx context.Context, ownerID string) (int64, error)
}

type singleLogRepository struct {
    db *gorm.DB
}

// NewTimelineLogRepository 单库实现
func NewTimelineLogRepository(db *gorm.DB) TimelineLogRepository {
    return &singleLogRepository{db: db}
}

func (r *singleLogRepository) Append(ctx context.Context, ownerID string, ref model.PostRef) error {
    return appendEntries(ctx, r.db, []string{ownerID}, ref)
}

func (r *singleLogRepository) AppendBatch(ctx context.Context, ownerIDs []string, ref model.PostRef) error {
    return appendEntries(ctx, r.db, ownerIDs, ref)
}

func (r *singleLogRepository) Range(ctx context.Context, ownerID string, cursor *model.Cursor, limit int) ([]model.PostRef, error) {
    return rangeOwner(ctx, r.db, ownerID, cursor, limit)
}

func (r *singleLogRepository) RangeAuthor(ctx context.Context, authorID string, sinceMs int64, limit int) ([]model.PostRef, error) {
    return rangeAuthor(ctx, r.db, authorID, sinceMs, limit)
}

func (r *singleLogRepository) Size(ctx context.Context, ownerID string) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("owner_id = ?", ownerID).Count(&cnt).Error
    if err != nil {
        return 0, fmt.Errorf("%w: %v", ErrLogUnavailable, err)
    }
    return cnt, nil
}

// 以下查询在单库与分片实现间共享

func appendEntries(ctx context.Context, db *gorm.DB, ownerIDs []string, ref model.PostRef) error {
    if len(ownerIDs) == 0 {
        return nil
    }
    records := make([]model.TimelineEntry, 0, len(ownerIDs))
    for _, owner := range ownerIDs {
        records = append(records, model.TimelineEntry{
            ID:        uuid.New().String(),
            OwnerID:   owner,
            PostID:    ref.PostID,
            AuthorID:  ref.AuthorID,
            CreatedAt: ref.CreatedAt,
        })
    }
    err := db.WithContext(ctx).
        Clauses(clause.OnConflict{DoNothing: true}).
        Create(&records).Error
    if err != nil {
        return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
    }
    return nil
}

func rangeOwner(ctx context.Context, db *gorm.DB, ownerID string, cursor *model.Cursor, limit int) ([]model.PostRef, error) {
    q := db.WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("owner_id = ?", ownerID)
    if cursor != nil {
        q = q.Where("(created_at < ?) OR (created_at = ? AND post_id < ?)",
            cursor.CreatedAt, cursor.CreatedAt, cursor.PostID)
    }
    var rows []model.TimelineEntry
    err := q.Order("created_at DESC, post_id DESC").Limit(limit).Find(&rows).Error
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrLogUnavailable, err)
    }
    return entriesToRefs(rows), nil
}

func rangeAuthor(ctx context.Context, db *gorm.DB, authorID string, sinceMs int64, limit int) ([]model.PostRef, error) {
    // 作者自有 log：owner == author 的切片，扇出时保证写入
    var rows []model.TimelineEntry
    err := db.WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("owner_id = ? AND author_id = ? AND created_at >= ?", authorID, authorID, sinceMs).
        Order("created_at DESC, post_id DESC").Limit(limit).Find(&rows).Error
    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrLogUnavailable, err)
    }
    return entriesToRefs(rows), nil
}

func entriesToRefs(rows []model.TimelineEntry) []model.PostRef {
    refs := make([]model.PostRef, len(rows))
    for i, row := range rows {
        refs[i] = row.Ref()
    }
    return refs
}
