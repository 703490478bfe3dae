package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperatorChannel is the messaging channel an operator is reached on
type OperatorChannel int16

const (
	OperatorChannelWhatsApp  OperatorChannel = 1
	OperatorChannelInstagram OperatorChannel = 2
	OperatorChannelEmail     OperatorChannel = 3
)

// String returns the display name of the channel
func (c OperatorChannel) String() string {
	switch c {
	case OperatorChannelWhatsApp:
		return "Whatsapp"
	case OperatorChannelInstagram:
		return "Instagram"
	case OperatorChannelEmail:
		return "Email"
	default:
		return "Unknown"
	}
}

// Valid checks if the channel is known
func (c OperatorChannel) Valid() bool {
	switch c {
	case OperatorChannelWhatsApp, OperatorChannelInstagram, OperatorChannelEmail:
		return true
	default:
		return false
	}
}

// OperatorStatus marks whether an operator takes part in routing
type OperatorStatus int16

const (
	OperatorStatusInactive OperatorStatus = 0
	OperatorStatusActive   OperatorStatus = 1
)

// Valid checks if the status is known
func (s OperatorStatus) Valid() bool {
	return s == OperatorStatusInactive || s == OperatorStatusActive
}

// Scan implements the sql.Scanner interface for OperatorStatus
func (s *OperatorStatus) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = OperatorStatusInactive
	case int64:
		*s = OperatorStatus(v)
	case int32:
		*s = OperatorStatus(v)
	case int16:
		*s = OperatorStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into OperatorStatus", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for OperatorStatus
func (s OperatorStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid OperatorStatus: %d", s)
	}
	return int64(s), nil
}

// Operator is a human agent a visitor can be redirected to.
// Identity is the opaque redirect target (chat link, profile URL, mailto).
type Operator struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_operators_uuid" json:"uuid"`
	Channel  OperatorChannel `gorm:"type:smallint;not null" json:"channel"`
	Identity string          `gorm:"type:text;not null" json:"identity"`
	Schedule string          `gorm:"type:text;not null;default:''" json:"schedule"`
	Name     string          `gorm:"size:255;not null" json:"name"`
	Nickname string          `gorm:"size:255;not null;default:''" json:"nickname"`
	Status   OperatorStatus  `gorm:"type:smallint;not null;index:idx_operators_status" json:"status"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for Operator
func (Operator) TableName() string { return "operators" }

// IsActive reports whether the operator is eligible for routing
func (o Operator) IsActive() bool { return o.Status == OperatorStatusActive }

// ScheduleDays splits the stored schedule into its entries
func (o Operator) ScheduleDays() []string {
	if o.Schedule == "" {
		return []string{}
	}
	parts := strings.Split(o.Schedule, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OptionTitle renders the operator for selection lists
func (o Operator) OptionTitle() string {
	return fmt.Sprintf("%s - %s - %s", o.Channel, o.Identity, o.Name)
}

// OperatorFilter represents filter criteria for operator queries
type OperatorFilter struct {
	ID      *uint
	UUID    *uuid.UUID
	IDs     []uint
	UUIDs   []uuid.UUID
	Channel *OperatorChannel
	Status  *OperatorStatus
}
