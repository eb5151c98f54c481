package models

type Session struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AppName   string `gorm:"column:app_name;type:text;not null;uniqueIndex:uniq_app_user_session,priority:1"`
	UserID    string `gorm:"column:user_id;type:text;not null;uniqueIndex:uniq_app_user_session,priority:2"`
	SessionID string `gorm:"column:session_id;type:text;not null;uniqueIndex:uniq_app_user_session,priority:3"`
	CreatedAt int64  `gorm:"column:created_at;not null"`
}

func (Session) TableName() string { return "sessions" }
