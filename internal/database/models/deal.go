package models

import (
	"time"

	"gorm.io/datatypes"
)

// Deal represents an office-search engagement for one prospective tenant
type Deal struct {
	ID            uint                                 `gorm:"primaryKey" json:"id"`
	SeekerName    string                               `gorm:"size:255;not null" json:"seeker_name"`
	SeekerEmail   string                               `gorm:"size:255;not null" json:"seeker_email"`
	CompanyName   string                               `gorm:"size:255;not null" json:"company_name"`
	TeamSize      int                                  `gorm:"not null" json:"team_size"`
	MonthlyBudget int                                  `gorm:"not null" json:"monthly_budget"`
	Requirements  datatypes.JSONType[DealRequirements] `json:"requirements"`
	Stage         string                               `gorm:"size:50;not null" json:"stage"`
	CreatedAt     time.Time                            `json:"created_at"`

	// Relations
	Emails []Email     `gorm:"foreignKey:DealID" json:"emails,omitempty"`
	Spaces []DealSpace `gorm:"foreignKey:DealID" json:"spaces,omitempty"`
}

// DealRequirements captures what the seeker asked for
type DealRequirements struct {
	DogFriendly bool   `json:"dog_friendly,omitempty"`
	Parking     bool   `json:"parking,omitempty"`
	AfterHours  bool   `json:"after_hours,omitempty"`
	Location    string `json:"location,omitempty"`
}

// DealSpace links a candidate space to a deal
type DealSpace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DealID    uint      `gorm:"index;not null" json:"deal_id"`
	SpaceID   uint      `gorm:"index;not null" json:"space_id"`
	Status    string    `gorm:"size:50;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Space *Space `gorm:"foreignKey:SpaceID" json:"space,omitempty"`
}
