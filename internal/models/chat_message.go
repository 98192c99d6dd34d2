package models

import "time"

// ChatMessage is one turn of an artifact's conversation history.
type ChatMessage struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ArtifactID uint   `gorm:"not null;index"`
	Role       string `gorm:"size:16;not null"`
	Content    string `gorm:"type:text"`
	CreatedAt  time.Time
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
