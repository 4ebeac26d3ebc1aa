package model

// TimelineEntry 时间线持久存储项（按 owner_id 切分）
type TimelineEntry struct {
    ID       string `gorm:"primaryKey;type:varchar(36)"`
    OwnerID  string `gorm:"type:varchar(36);index:idx_entry_owner_created;uniqueIndex:ux_entry_owner_post"`
    PostID   string `gorm:"type:varchar(36);uniqueIndex:ux_entry_owner_post"`
    AuthorID string `gorm:"type:varchar(36);index:idx_entry_author_created"`
    // 复合唯一键，重复投递落盘为幂等
    // ux_entry_owner_post = (owner_id, post_id)
    CreatedAt int64 `gorm:"index:idx_entry_owner_created;index:idx_entry_author_created"` // ms，帖子创建时刻
}

func (TimelineEntry) TableName() string { return "timeline_entries" }

// Ref 取引用三元组
func (e TimelineEntry) Ref() PostRef {
    return PostRef{PostID: e.PostID, AuthorID: e.AuthorID, CreatedAt: e.CreatedAt}
}
