package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"moneta/internal/uuid"

	"gorm.io/gorm"
)

// ThreadStatus is the lifecycle state of a chat thread.
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Chat answer modes.
const (
	ChatModeSQL      = "sql"
	ChatModeSemantic = "semantic"
	ChatModeHybrid   = "hybrid"
)

// ChatThread is a persistent conversation scope. Its UpdatedAt and
// message count are derived from the messages it holds.
type ChatThread struct {
	ID            string       `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string       `gorm:"not null" json:"title"`
	Status        ThreadStatus `gorm:"not null;default:active" json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	LastMessageAt *time.Time   `json:"last_message_at"`
}

// BeforeCreate assigns a UUIDv7 key.
func (t *ChatThread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}

// ChatSource is one citation backing an assistant answer: either a
// tabular SQL aggregation result or a block of semantically retrieved
// transactions.
type ChatSource struct {
	SourceType   string     `json:"source_type"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	TableColumns []string   `json:"table_columns,omitempty"`
	TableRows    [][]string `json:"table_rows,omitempty"`
}

// SourceList stores chat sources as a JSON column.
type SourceList []ChatSource

// Value implements driver.Valuer.
func (s SourceList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SourceList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported source list type %T", value)
	}
}

// JSONMap stores loosely structured metadata as a JSON column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported json map type %T", value)
	}
}

// ChatMessage is one append-only entry in a thread. User messages carry
// only the question; assistant messages carry the answer, the mode the
// engine answered in, and the sources it cited.
type ChatMessage struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID   string      `gorm:"type:uuid;not null;index" json:"thread_id"`
	Role       MessageRole `gorm:"not null" json:"role"`
	Question   string      `gorm:"column:question_text;not null" json:"question_text"`
	Answer     *string     `gorm:"column:answer_text" json:"answer_text"`
	Mode       *string     `json:"mode"`
	Sources    SourceList  `gorm:"type:jsonb" json:"sources,omitempty"`
	Filters    JSONMap     `gorm:"type:jsonb" json:"filters,omitempty"`
	Meta       JSONMap     `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// BeforeCreate assigns a UUIDv7 key.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New()
	}
	return nil
}
