package model

import "time"

// DeadLetter 扇出死信（单个接收者持续失败时落盘，供运维排查）
type DeadLetter struct {
    ID        string    `gorm:"primaryKey;type:varchar(36)"`
    OwnerID   string    `gorm:"type:varchar(36);index:idx_dl_owner"`
    PostID    string    `gorm:"type:varchar(36);index:idx_dl_post"`
    AuthorID  string    `gorm:"type:varchar(36)"`
    Reason    string    `gorm:"type:varchar(255)"`
    Attempts  int       `gorm:"not null;default:0"`
    CreatedAt time.Time `gorm:"index"`
}

func (DeadLetter) TableName() string { return "fanout_dead_letters" }
