package model

// Post 内容主体（外部 post store 所有；本服务只在发帖适配器写入）
type Post struct {
    ID        string `gorm:"primaryKey;type:varchar(36)"`
    AuthorID  string `gorm:"type:varchar(36);index:idx_post_author_created"`
    Text      string `gorm:"type:text"`
    MediaURLs string `gorm:"type:text"` // json 数组序列化
    CreatedAt int64  `gorm:"index:idx_post_author_created"` // ms
}

func (Post) TableName() string { return "posts" }

// Ref 取引用三元组
func (p Post) Ref() PostRef {
    return PostRef{PostID: p.ID, AuthorID: p.AuthorID, CreatedAt: p.CreatedAt}
}
