package model

// UserProfile 用户画像（外部 profile store 所有；本服务只读，短 TTL 本地缓存）
type UserProfile struct {
    ID            string `gorm:"primaryKey;type:varchar(36)"`
    Username      string `gorm:"type:varchar(64)"`
    AvatarURL     string `gorm:"type:varchar(255)"`
    FollowerCount int64  `gorm:"not null;default:0"`
    LastActiveAt  int64  `gorm:"index"` // ms
}

func (UserProfile) TableName() string { return "user_profiles" }
