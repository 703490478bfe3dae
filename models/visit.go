package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceType is the coarse device class derived from the User-Agent header
type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "Mobile"
	DeviceTypeDesktop DeviceType = "Desktop"
	DeviceTypeUnknown DeviceType = "Unknown"
)

// String returns the string representation of the device type
func (d DeviceType) String() string {
	return string(d)
}

// Visit is one routed request. Rows are append-only.
type Visit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_visits_uuid" json:"uuid"`
	CampaignID   uint       `gorm:"not null;index:idx_visits_campaign_id_created_at,priority:1" json:"campaign_id"`
	OperatorID   uint       `gorm:"not null;index:idx_visits_operator_id" json:"operator_id"`
	AssignmentID uint       `gorm:"not null" json:"assignment_id"`
	IPAddress    string     `gorm:"size:64;not null;default:''" json:"ip_address"`
	Device       DeviceType `gorm:"size:16;not null" json:"device"`
	Location     string     `gorm:"type:text;not null;default:''" json:"location"`
	Maps         string     `gorm:"type:text;not null;default:''" json:"maps"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_visits_campaign_id_created_at,priority:2" json:"created_at"`
}

// TableName returns the table name for Visit
func (Visit) TableName() string { return "visits" }

// VisitFilter represents filter criteria for visit queries
type VisitFilter struct {
	CampaignID    *uint
	OperatorID    *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// VisitorRow is a visit joined with the name of the operator it was routed to
type VisitorRow struct {
	UUID         uuid.UUID  `json:"uuid"`
	OperatorName string     `json:"operator_name"`
	IPAddress    string     `json:"ip_address"`
	Device       DeviceType `json:"device"`
	Location     string     `json:"location"`
	Maps         string     `json:"maps"`
	CreatedAt    time.Time  `json:"created_at"`
}

// OperatorDailyVisits is the number of visits an operator received on one day
type OperatorDailyVisits struct {
	OperatorID   uint
	OperatorName string
	Day          time.Time
	Total        int64
}

// OperatorVisitTotal is the number of visits an operator received over a period
type OperatorVisitTotal struct {
	OperatorUUID uuid.UUID `json:"operator_uuid"`
	OperatorName string    `json:"operator_name"`
	Total        int64     `json:"total"`
}

// DeviceVisitTotal is the number of visits per device class
type DeviceVisitTotal struct {
	Device DeviceType `json:"device"`
	Total  int64      `json:"total"`
}
