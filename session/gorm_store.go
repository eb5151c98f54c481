package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/halfmoonlab/supportdesk/db/models"
	"github.com/halfmoonlab/supportdesk/llm"
)

const defaultHistoryLimit = 200

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Create(ctx context.Context, key Key) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("nil session store")
	}
	key = key.Normalize()
	if !key.Valid() {
		return fmt.Errorf("invalid session key: %+v", key)
	}

	var existing models.Session
	err := s.DB.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", key.AppName, key.UserID, key.SessionID).
		First(&existing).Error
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row := models.Session{
		AppName:   key.AppName,
		UserID:    key.UserID,
		SessionID: key.SessionID,
		CreatedAt: time.Now().UTC().Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		// A concurrent creator may have won the unique index race.
		if strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *GormStore) History(ctx context.Context, key Key, limit int) ([]llm.Message, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("nil session store")
	}
	key = key.Normalize()
	if !key.Valid() {
		return nil, fmt.Errorf("invalid session key: %+v", key)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []models.TurnMessage
	err := s.DB.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", key.AppName, key.UserID, key.SessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Rows arrive newest-first; flip to chronological order.
	out := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rowToMessage(rows[i]))
	}
	return out, nil
}

func (s *GormStore) Append(ctx context.Context, key Key, msgs []llm.Message) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("nil session store")
	}
	key = key.Normalize()
	if !key.Valid() {
		return fmt.Errorf("invalid session key: %+v", key)
	}
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now().UTC().Unix()
	rows := make([]models.TurnMessage, 0, len(msgs))
	for _, m := range msgs {
		row := models.TurnMessage{
			AppName:    key.AppName,
			UserID:     key.UserID,
			SessionID:  key.SessionID,
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			CreatedAt:  now,
		}
		if len(m.ToolCalls) > 0 {
			if b, err := json.Marshal(m.ToolCalls); err == nil {
				row.ToolCallsJSON = string(b)
			}
		}
		rows = append(rows, row)
	}
	return s.DB.WithContext(ctx).Create(&rows).Error
}

func rowToMessage(row models.TurnMessage) llm.Message {
	msg := llm.Message{
		Role:       row.Role,
		Content:    row.Content,
		ToolCallID: row.ToolCallID,
	}
	if strings.TrimSpace(row.ToolCallsJSON) != "" {
		_ = json.Unmarshal([]byte(row.ToolCallsJSON), &msg.ToolCalls)
	}
	return msg
}
