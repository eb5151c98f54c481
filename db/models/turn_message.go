package models

type TurnMessage struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	AppName       string `gorm:"column:app_name;type:text;not null;index:idx_turn_session,priority:1"`
	UserID        string `gorm:"column:user_id;type:text;not null;index:idx_turn_session,priority:2"`
	SessionID     string `gorm:"column:session_id;type:text;not null;index:idx_turn_session,priority:3"`
	Role          string `gorm:"column:role;type:text;not null"`
	Content       string `gorm:"column:content;type:text"`
	ToolCallID    string `gorm:"column:tool_call_id;type:text"`
	ToolCallsJSON string `gorm:"column:tool_calls_json;type:text"`
	CreatedAt     int64  `gorm:"column:created_at;not null;index"`
}

func (TurnMessage) TableName() string { return "turn_messages" }
