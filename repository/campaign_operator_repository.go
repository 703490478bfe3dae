package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleAssignment is returned when the assignment to advance is gone or already saturated
var ErrStaleAssignment = errors.New("assignment cannot be advanced")

// CampaignOperatorRepositoryImpl implements CampaignOperatorRepository
type CampaignOperatorRepositoryImpl struct {
	*BaseRepository[models.CampaignOperator, any]
}

// NewCampaignOperatorRepository creates a new assignment repository
func NewCampaignOperatorRepository(db *gorm.DB) CampaignOperatorRepository {
	return &CampaignOperatorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignOperator, any](db),
	}
}

// LockCampaignBySlug loads the campaign with SELECT ... FOR UPDATE
func (r *CampaignOperatorRepositoryImpl) LockCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slug = ?", slug).
		Take(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock campaign %q: %w", slug, err)
	}

	return &campaign, nil
}

func (r *CampaignOperatorRepositoryImpl) assignmentQuery(ctx context.Context) *gorm.DB {
	db := r.getDB(ctx)
	return db.Table("campaign_operators AS co").
		Select("co.*, o.uuid AS operator_uuid, o.identity AS identity, o.name AS operator_name").
		Joins("JOIN operators o ON o.id = co.operator_id")
}

// ListActiveBySlug returns the routable assignments of a campaign
func (r *CampaignOperatorRepositoryImpl) ListActiveBySlug(ctx context.Context, slug string) ([]*models.OperatorAssignment, error) {
	var rows []*models.OperatorAssignment
	err := r.assignmentQuery(ctx).
		Joins("JOIN campaigns c ON c.id = co.campaign_id").
		Where("c.slug = ? AND o.status = ?", slug, models.OperatorStatusActive).
		Order("co.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments of %q: %w", slug, err)
	}
	return rows, nil
}

// ListByCampaign returns every assignment of a campaign, active operators or not
func (r *CampaignOperatorRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.OperatorAssignment, error) {
	var rows []*models.OperatorAssignment
	err := r.assignmentQuery(ctx).
		Where("co.campaign_id = ?", campaignID).
		Order("co.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments of campaign %d: %w", campaignID, err)
	}
	return rows, nil
}

// ApplyRoutingOutcome persists one routing decision
func (r *CampaignOperatorRepositoryImpl) ApplyRoutingOutcome(ctx context.Context, campaignID, assignmentID uint, reset bool, visit *models.Visit) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	return finish(db, shouldCommit, applyRoutingOutcome(db, campaignID, assignmentID, reset, visit))
}

func applyRoutingOutcome(db *gorm.DB, campaignID, assignmentID uint, reset bool, visit *models.Visit) error {
	now := utils.UTCNow()

	res := db.Model(&models.CampaignOperator{}).
		Where("id = ? AND campaign_id = ? AND handle < grade", assignmentID, campaignID).
		Updates(map[string]any{
			"handle":     gorm.Expr("handle + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to advance assignment %d: %w", assignmentID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: id %d", ErrStaleAssignment, assignmentID)
	}

	if reset {
		err := db.Model(&models.CampaignOperator{}).
			Where("campaign_id = ?", campaignID).
			Updates(map[string]any{
				"handle":     0,
				"updated_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset handles of campaign %d: %w", campaignID, err)
		}
	}

	if visit.UUID == uuid.Nil {
		visit.UUID = uuid.New()
	}
	if err := db.Create(visit).Error; err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	return nil
}

// ReplaceForCampaign swaps the assignment set of a campaign
func (r *CampaignOperatorRepositoryImpl) ReplaceForCampaign(ctx context.Context, campaignID uint, rows []*models.CampaignOperator) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	err = db.Where("campaign_id = ?", campaignID).Delete(&models.CampaignOperator{}).Error
	if err == nil && len(rows) > 0 {
		for _, row := range rows {
			row.CampaignID = campaignID
			row.Reset()
			if row.UUID == uuid.Nil {
				row.UUID = uuid.New()
			}
		}
		err = db.CreateInBatches(rows, 100).Error
	}
	if err != nil {
		err = fmt.Errorf("failed to replace assignments of campaign %d: %w", campaignID, err)
	}

	return finish(db, shouldCommit, err)
}

func (r *CampaignOperatorRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) error {
	db := r.getDB(ctx)
	return db.Where("campaign_id = ?", campaignID).Delete(&models.CampaignOperator{}).Error
}

func (r *CampaignOperatorRepositoryImpl) DeleteByOperator(ctx context.Context, operatorID uint) error {
	db := r.getDB(ctx)
	return db.Where("operator_id = ?", operatorID).Delete(&models.CampaignOperator{}).Error
}

func (r *CampaignOperatorRepositoryImpl) CampaignIDsByOperator(ctx context.Context, operatorID uint) ([]uint, error) {
	db := r.getDB(ctx)
	var ids []uint
	err := db.Model(&models.CampaignOperator{}).
		Where("operator_id = ?", operatorID).
		Distinct().
		Pluck("campaign_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ResetHandles starts a new cycle for every given campaign. The campaign rows are
// locked in id order first so the reset cannot interleave with a routing decision.
func (r *CampaignOperatorRepositoryImpl) ResetHandles(ctx context.Context, campaignIDs []uint) error {
	if len(campaignIDs) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	var locked []uint
	err = db.Model(&models.Campaign{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", campaignIDs).
		Order("id ASC").
		Pluck("id", &locked).Error
	if err == nil {
		err = db.Model(&models.CampaignOperator{}).
			Where("campaign_id IN ?", campaignIDs).
			Updates(map[string]any{
				"handle":     0,
				"updated_at": utils.UTCNow(),
			}).Error
	}
	if err != nil {
		err = fmt.Errorf("failed to reset handles: %w", err)
	}

	return finish(db, shouldCommit, err)
}
