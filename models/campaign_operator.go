package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAssignmentSaturated is returned when advancing an assignment whose handle already reached its grade
var ErrAssignmentSaturated = errors.New("assignment handle already reached its grade")

// CampaignOperator assigns an operator to a campaign with a weight.
// Grade is the number of visits the operator receives per rotation cycle and
// Handle counts the visits already routed in the current cycle (0 <= Handle <= Grade).
type CampaignOperator struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_campaign_operators_uuid" json:"uuid"`
	CampaignID uint      `gorm:"not null;uniqueIndex:uk_campaign_operators_campaign_operator,priority:1;index:idx_campaign_operators_campaign_id" json:"campaign_id"`
	OperatorID uint      `gorm:"not null;uniqueIndex:uk_campaign_operators_campaign_operator,priority:2;index:idx_campaign_operators_operator_id" json:"operator_id"`
	Grade      int       `gorm:"not null;check:chk_campaign_operators_grade,grade >= 1" json:"grade"`
	Handle     int       `gorm:"not null;default:0;check:chk_campaign_operators_handle,handle >= 0" json:"handle"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for CampaignOperator
func (CampaignOperator) TableName() string { return "campaign_operators" }

// Eligible reports whether the assignment still has capacity in the current cycle
func (a CampaignOperator) Eligible() bool {
	return a.Handle < a.Grade
}

// Advance records one routed visit against the assignment
func (a *CampaignOperator) Advance() error {
	if !a.Eligible() {
		return ErrAssignmentSaturated
	}
	a.Handle++
	return nil
}

// Reset starts a new cycle for the assignment
func (a *CampaignOperator) Reset() {
	a.Handle = 0
}

// OperatorAssignment is an assignment joined with the routing fields of its operator
type OperatorAssignment struct {
	CampaignOperator
	OperatorUUID uuid.UUID `json:"operator_uuid"`
	Identity     string    `json:"identity"`
	OperatorName string    `json:"operator_name"`
}
