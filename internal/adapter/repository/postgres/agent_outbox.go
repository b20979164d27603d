package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
)

// AgentMessageModel is one queued outbound message for a server's agent.
// The messaging transport drains this table and marks rows delivered.
type AgentMessageModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false"`
	MessageID   string `gorm:"type:varchar(36);uniqueIndex"`
	ServerID    string `gorm:"type:varchar(36);index"`
	MessageType string `gorm:"type:varchar(50)"`
	Payload     string `gorm:"type:text;not null"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'"`
	Attempts    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AgentMessageModel) TableName() string { return "agent_messages" }

// AgentOutbox persists outbound agent messages for asynchronous delivery.
type AgentOutbox struct {
	db  *gorm.DB
	ids *snowflake.Node
}

func NewAgentOutbox(db *gorm.DB, ids *snowflake.Node) *AgentOutbox {
	return &AgentOutbox{db: db, ids: ids}
}

func (o *AgentOutbox) Enqueue(ctx context.Context, serverID string, msg agent.Message) error {
	payload, err := agent.Encode(msg)
	if err != nil {
		return err
	}
	row := AgentMessageModel{
		ID:          o.ids.GenerateID(),
		MessageID:   msg.GetMeta().ID,
		ServerID:    serverID,
		MessageType: msg.Type(),
		Payload:     string(payload),
		Status:      "pending",
	}
	return o.db.WithContext(ctx).Create(&row).Error
}
