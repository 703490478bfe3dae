// Package models contains domain entities for campaigns, operators and the visit ledger
package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is a public link (/{slug}) that rotates visitors over its assigned operators
type Campaign struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Slug    string    `gorm:"size:128;not null;uniqueIndex:uk_campaigns_slug" json:"slug"`
	Name    string    `gorm:"size:255;not null" json:"name"`
	Message string    `gorm:"type:text;not null;default:''" json:"message"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for Campaign
func (Campaign) TableName() string { return "campaigns" }

// CampaignFilter represents filter criteria for campaign queries
type CampaignFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Slug          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// CampaignSummary is a campaign row with its aggregated counters
type CampaignSummary struct {
	Campaign
	VisitorTotal  int64 `json:"visitor_total"`
	OperatorTotal int64 `json:"operator_total"`
}
