package model

import (
    "encoding/base64"
    "errors"
    "fmt"
    "strconv"
    "strings"
)

// ErrInvalidCursor 游标无法解析（客户端传入非本服务签发的值）
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor 分页游标 (created_at, post_id)，对客户端不透明
type Cursor struct {
    CreatedAt int64
    PostID    string
}

// Encode 序列化为 base64("createdAt:postID")
func (c Cursor) Encode() string {
    raw := fmt.Sprintf("%d:%s", c.CreatedAt, c.PostID)
    return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor 解析客户端游标；空串返回 nil 游标（取最新页）
func DecodeCursor(s string) (*Cursor, error) {
    if s == "" {
        return nil, nil
    }
    raw, err := base64.RawURLEncoding.DecodeString(s)
    if err != nil {
        return nil, ErrInvalidCursor
    }
    parts := strings.SplitN(string(raw), ":", 2)
    if len(parts) != 2 || parts[1] == "" {
        return nil, ErrInvalidCursor
    }
    ts, err := strconv.ParseInt(parts[0], 10, 64)
    if err != nil || ts <= 0 {
        return nil, ErrInvalidCursor
    }
    return &Cursor{CreatedAt: ts, PostID: parts[1]}, nil
}
