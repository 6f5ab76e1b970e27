package models

import (
	"time"

	"gorm.io/datatypes"
)

// DraftStatus represents the review state of a draft
type DraftStatus string

const (
	DraftStatusPending  DraftStatus = "pending"
	DraftStatusApproved DraftStatus = "approved"
	DraftStatusRejected DraftStatus = "rejected"
	DraftStatusSent     DraftStatus = "sent"
	DraftStatusArchived DraftStatus = "archived"
)

// IsValid checks if the draft status is valid
func (s DraftStatus) IsValid() bool {
	switch s {
	case DraftStatusPending, DraftStatusApproved, DraftStatusRejected, DraftStatusSent, DraftStatusArchived:
		return true
	}
	return false
}

// Draft represents one AI-assisted reply to an inbound email, including its
// version history and review state.
type Draft struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	DealID         uint `gorm:"index;not null" json:"deal_id"`
	InboundEmailID uint `gorm:"index;not null" json:"inbound_email_id"`

	// AIGeneratedBody is the original v0 text and is never rewritten.
	AIGeneratedBody string `gorm:"type:text;not null" json:"ai_generated_body"`
	// EditedBody holds the latest human edit, if any.
	EditedBody string `gorm:"type:text" json:"edited_body,omitempty"`
	// FinalBody is the body that approval and sending act on.
	FinalBody string `gorm:"type:text" json:"final_body"`

	ConfidenceScore int    `gorm:"not null" json:"confidence_score"`
	Status          string `gorm:"size:50;index;not null;default:'pending'" json:"status"`

	Reasoning  datatypes.JSONType[Reasoning]          `json:"reasoning"`
	Metadata   datatypes.JSONType[GenerationMetadata] `json:"metadata"`
	Validation datatypes.JSONType[ValidationReport]   `json:"validation"`

	RegenerationCount  int                               `gorm:"not null;default:0" json:"regeneration_count"`
	LastRegenerationAt *time.Time                        `json:"last_regeneration_at,omitempty"`
	CurrentVersion     int                               `gorm:"not null;default:0" json:"current_version"`
	Versions           datatypes.JSONSlice[DraftVersion] `gorm:"column:draft_versions" json:"draft_versions"`

	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy string     `gorm:"size:255" json:"reviewed_by,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	SentEmailID *uint      `json:"sent_email_id,omitempty"`

	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	ArchivedBy    string     `gorm:"size:255" json:"archived_by,omitempty"`
	ArchiveReason string     `gorm:"type:text" json:"archive_reason,omitempty"`

	// Relations
	Deal         *Deal  `gorm:"foreignKey:DealID" json:"deal,omitempty"`
	InboundEmail *Email `gorm:"foreignKey:InboundEmailID" json:"inbound_email,omitempty"`
}

// DraftVersion is an immutable snapshot of a draft body at a point in its
// regeneration history. Version 0 is the original generation.
type DraftVersion struct {
	Version    int                `json:"version"`
	Body       string             `json:"body"`
	Prompt     *string            `json:"prompt"` // user instruction; nil for version 0
	Confidence int                `json:"confidence"`
	Reasoning  Reasoning          `json:"reasoning"`
	Metadata   GenerationMetadata `json:"metadata"`
	CreatedAt  time.Time          `json:"created_at"`
}

// FindVersion returns the snapshot with the given version number
func (d *Draft) FindVersion(version int) (DraftVersion, bool) {
	for _, v := range d.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return DraftVersion{}, false
}

// Reasoning explains to the reviewer which questions were answered and which
// data sources the generated text drew on.
type Reasoning struct {
	QuestionsAddressed []QuestionAnswer `json:"questions_addressed"`
	DataUsed           []DataSource     `json:"data_used"`
	SchedulingLogic    []string         `json:"scheduling_logic,omitempty"`
	CRMLookups         []CRMLookup      `json:"crm_lookups,omitempty"`
	CalendarChecks     []CalendarCheck  `json:"calendar_checks,omitempty"`
	TourRoute          *TourRoute       `json:"tour_route,omitempty"`
}

// QuestionAnswer records one inbound question the draft addressed
type QuestionAnswer struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	SourceEmailID uint   `json:"source_email_id,omitempty"`
	SourceText    string `json:"source_text,omitempty"`
}

// DataSource records one source document the draft drew on, deduplicated by key
// ("space-{id}" or "email-{id}").
type DataSource struct {
	SourceType     string            `json:"source_type"` // space, deal, email
	SourceID       uint              `json:"source_id"`
	SourceName     string            `json:"source_name"`
	SourceTitle    string            `json:"source_title"`
	SourceSubtitle string            `json:"source_subtitle,omitempty"`
	Details        DataSourceDetails `json:"details"`
	DataPointsUsed []string          `json:"data_points_used,omitempty"`
}

// DataSourceDetails carries source-type specific fields
type DataSourceDetails struct {
	// For spaces
	Address     string `json:"address,omitempty"`
	MonthlyRate int    `json:"monthly_rate,omitempty"`
	HostCompany string `json:"host_company,omitempty"`
	// For emails
	From    string     `json:"from,omitempty"`
	To      string     `json:"to,omitempty"`
	SentAt  *time.Time `json:"sent_at,omitempty"`
	Subject string     `json:"subject,omitempty"`
}

// CRMLookup captures the amenity detail consulted for one space
type CRMLookup struct {
	SpaceID        uint              `json:"space_id"`
	SpaceName      string            `json:"space_name"`
	Address        string            `json:"address"`
	Details        DetailedAmenities `json:"details"`
	Excluded       bool              `json:"excluded,omitempty"`
	ExcludedReason string            `json:"excluded_reason,omitempty"`
}

// CalendarCheck captures a tour-window availability check across spaces
type CalendarCheck struct {
	Day    string               `json:"day"`
	Spaces []SpaceWindowMatches `json:"spaces"`
}

// SpaceWindowMatches lists one space's slots for a checked day
type SpaceWindowMatches struct {
	SpaceName string `json:"space_name"`
	Available bool   `json:"available"`
	Note      string `json:"note,omitempty"`
}

// TourRoute is the suggested visiting order when multiple spaces are in play
type TourRoute struct {
	Recommended string `json:"recommended"`
	Route       string `json:"route"`
	TotalStops  int    `json:"total_stops"`
}

// GenerationMetadata records how a draft body was produced
type GenerationMetadata struct {
	Model                string    `json:"model"`
	TokensUsed           int       `json:"tokens_used"`
	GeneratedAt          time.Time `json:"generated_at"`
	ValidationTokensUsed int       `json:"validation_tokens_used,omitempty"`
}

// ValidationStatus is the fact-check verdict
type ValidationStatus string

const (
	ValidationPassed   ValidationStatus = "passed"
	ValidationWarnings ValidationStatus = "warnings"
	ValidationFailed   ValidationStatus = "failed"
)

// ValidationReport is the result of the fact-check pass against source data.
// A zero Status means the draft was not validated.
type ValidationReport struct {
	Status    ValidationStatus `json:"status"`
	Issues    []string         `json:"issues"`
	CheckedAt time.Time        `json:"checked_at"`
}
