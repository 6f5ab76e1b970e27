package models

import (
	"time"

	"gorm.io/datatypes"
)

// Space represents a listed office space
type Space struct {
	ID                uint                                  `gorm:"primaryKey" json:"id"`
	Name              string                                `gorm:"size:255;not null" json:"name"`
	Address           string                                `gorm:"type:text;not null" json:"address"`
	Neighborhood      string                                `gorm:"size:100" json:"neighborhood"`
	HostCompany       string                                `gorm:"size:255;not null" json:"host_company"`
	HostEmail         string                                `gorm:"size:255;not null" json:"host_email"`
	HostContext       string                                `gorm:"type:text" json:"host_context"`
	Amenities         datatypes.JSONType[SpaceAmenities]    `json:"amenities"`
	Availability      datatypes.JSONType[SpaceAvailability] `json:"availability"`
	MonthlyRate       int                                   `gorm:"not null" json:"monthly_rate"`
	DetailedAmenities datatypes.JSONType[DetailedAmenities] `json:"detailed_amenities"`
	CreatedAt         time.Time                             `json:"created_at"`
}

// SpaceAmenities is the quick amenity flag set shown to the model
type SpaceAmenities struct {
	Parking     bool `json:"parking"`
	DogFriendly bool `json:"dog_friendly"`
	AfterHours  bool `json:"after_hours"`
}

// SpaceAvailability maps weekday name to tour time slots, e.g. "tuesday" -> ["2pm","4pm"]
type SpaceAvailability map[string][]string

// DetailedAmenities holds the CRM-grade detail used for lookups and fact-checking
type DetailedAmenities struct {
	Parking        *ParkingDetail     `json:"parking,omitempty"`
	DogPolicy      *DogPolicyDetail   `json:"dog_policy,omitempty"`
	Access         *AccessDetail      `json:"access,omitempty"`
	MeetingRooms   *MeetingRoomDetail `json:"meeting_rooms,omitempty"`
	RentInclusions *RentInclusions    `json:"rent_inclusions,omitempty"`
	HostStatus     string             `json:"host_status,omitempty"`
	LastContact    string             `json:"last_contact,omitempty"`
}

// ParkingDetail describes parking terms for a space
type ParkingDetail struct {
	Type           string `json:"type,omitempty"`
	Location       string `json:"location,omitempty"`
	CostMonthly    int    `json:"cost_monthly,omitempty"`
	CostPerDay     int    `json:"cost_per_day,omitempty"`
	SpotsAvailable int    `json:"spots_available,omitempty"`
	SharedSpots    bool   `json:"shared_spots,omitempty"`
	Note           string `json:"note,omitempty"`
}

// DogPolicyDetail describes the building's dog policy
type DogPolicyDetail struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	Flexibility string `json:"flexibility,omitempty"`
	SizeLimit   string `json:"size_limit,omitempty"`
	Deposit     int    `json:"deposit,omitempty"`
	Note        string `json:"note,omitempty"`
}

// AccessDetail describes building access and after-hours rules
type AccessDetail struct {
	System          string `json:"system,omitempty"`
	CostPerCard     int    `json:"cost_per_card,omitempty"`
	Process         string `json:"process,omitempty"`
	Hours           string `json:"hours,omitempty"`
	AfterHours      bool   `json:"after_hours,omitempty"`
	AdvanceNotice   string `json:"advance_notice,omitempty"`
	SecurityContact string `json:"security_contact,omitempty"`
}

// MeetingRoomDetail describes meeting room inventory and booking rules
type MeetingRoomDetail struct {
	Count              int    `json:"count"`
	Sizes              []int  `json:"sizes,omitempty"`
	BookingSystem      string `json:"booking_system,omitempty"`
	MaxHoursPerBooking int    `json:"max_hours_per_booking,omitempty"`
	Note               string `json:"note,omitempty"`
}

// RentInclusions lists what the monthly rate covers
type RentInclusions struct {
	Utilities  bool   `json:"utilities,omitempty"`
	Internet   string `json:"internet,omitempty"`
	Janitorial string `json:"janitorial,omitempty"`
	HVAC       bool   `json:"hvac,omitempty"`
	Kitchen    string `json:"kitchen,omitempty"`
}
