package models

import (
	"time"

	"gorm.io/datatypes"
)

// Email represents one message in a deal's thread. Inbound emails are written
// by an external collaborator; outbound rows are inserted when a draft is sent.
type Email struct {
	ID          uint                           `gorm:"primaryKey" json:"id"`
	DealID      uint                           `gorm:"index;not null" json:"deal_id"`
	FromAddr    string                         `gorm:"size:255;not null" json:"from"`
	ToAddr      string                         `gorm:"size:255;not null" json:"to"`
	Subject     string                         `gorm:"type:text;not null" json:"subject"`
	Body        string                         `gorm:"type:text;not null" json:"body"`
	SentAt      time.Time                      `gorm:"index" json:"sent_at"`
	AIGenerated bool                           `gorm:"default:false" json:"ai_generated"`
	AIMetadata  datatypes.JSONType[AIMetadata] `json:"ai_metadata"`
}

// AIMetadata is attached to outbound emails that originated from a draft
type AIMetadata struct {
	Confidence      int      `json:"confidence,omitempty"`
	SchedulingLogic []string `json:"scheduling_logic,omitempty"`
	QuestionsCount  int      `json:"questions_count,omitempty"`
	DraftID         uint     `json:"draft_id,omitempty"`
}
