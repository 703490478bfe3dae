// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/rotalink/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// Transactor runs fn in a transaction carried by the context passed to fn.
// Repositories called with that context join the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// AdminRepository defines operations for admin accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	BySlug(ctx context.Context, slug string) (*models.Campaign, error)
	// LockByUUID loads the campaign row with an exclusive row lock. It must run inside a transaction.
	LockByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id uint) error
	ListSummaries(ctx context.Context, limit, offset int) ([]*models.CampaignSummary, error)
	Summary(ctx context.Context, id uint) (*models.CampaignSummary, error)
}

// OperatorRepository defines operations for operators
type OperatorRepository interface {
	Repository[models.Operator, models.OperatorFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	ByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Operator, error)
	Update(ctx context.Context, operator *models.Operator) error
	Delete(ctx context.Context, id uint) error
}

// AssignmentStore is the persistence boundary of campaign routing
type AssignmentStore interface {
	// LockCampaignBySlug loads the campaign with an exclusive row lock that serializes
	// every routing decision of that campaign. It must run inside a transaction.
	// Returns nil when the slug is unknown.
	LockCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error)
	// ListActiveBySlug returns the assignments of the campaign whose operator is active,
	// ordered by assignment ID.
	ListActiveBySlug(ctx context.Context, slug string) ([]*models.OperatorAssignment, error)
	// ApplyRoutingOutcome advances the selected assignment, resets every handle of the
	// campaign when reset is set and appends the visit, as one unit.
	ApplyRoutingOutcome(ctx context.Context, campaignID, assignmentID uint, reset bool, visit *models.Visit) error
}

// CampaignOperatorRepository defines operations for campaign operator assignments
type CampaignOperatorRepository interface {
	AssignmentStore
	ListByCampaign(ctx context.Context, campaignID uint) ([]*models.OperatorAssignment, error)
	// ReplaceForCampaign drops the current assignments of the campaign and inserts rows with handle 0
	ReplaceForCampaign(ctx context.Context, campaignID uint, rows []*models.CampaignOperator) error
	DeleteByCampaign(ctx context.Context, campaignID uint) error
	DeleteByOperator(ctx context.Context, operatorID uint) error
	CampaignIDsByOperator(ctx context.Context, operatorID uint) ([]uint, error)
	ResetHandles(ctx context.Context, campaignIDs []uint) error
}

// VisitRepository defines read operations over the visit ledger
type VisitRepository interface {
	Repository[models.Visit, models.VisitFilter]
	ListVisitors(ctx context.Context, campaignID uint, limit, offset int) ([]*models.VisitorRow, error)
	DailyCountsByOperator(ctx context.Context, campaignID uint, from, to time.Time) ([]*models.OperatorDailyVisits, error)
	TopOperators(ctx context.Context, from, to time.Time, limit int) ([]*models.OperatorVisitTotal, error)
	DeviceTotals(ctx context.Context, from, to *time.Time) ([]*models.DeviceVisitTotal, error)
}
