package model

// PostRef 时间线中的轻量引用，完整内容读取时再水合
type PostRef struct {
    PostID    string `json:"post_id"`
    AuthorID  string `json:"author_id"`
    CreatedAt int64  `json:"created_at"` // ms since epoch，由 post store 赋值，本服务只读
}

// After 按 (created_at, post_id) 降序比较：r 是否排在 other 前面
func (r PostRef) After(other PostRef) bool {
    if r.CreatedAt != other.CreatedAt {
        return r.CreatedAt > other.CreatedAt
    }
    return r.PostID > other.PostID
}

// Before 游标比较：r 是否严格位于 (createdAt, postID) 之后（即更旧）
func (r PostRef) Before(createdAt int64, postID string) bool {
    if r.CreatedAt != createdAt {
        return r.CreatedAt < createdAt
    }
    return r.PostID < postID
}
