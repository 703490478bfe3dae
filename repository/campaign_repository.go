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

// CampaignRepositoryImpl implements CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByID retrieves a campaign by its ID
func (r *CampaignRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	if err := db.Last(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &campaign, nil
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return r.first(ctx, models.CampaignFilter{UUID: &id})
}

// BySlug retrieves a campaign by slug
func (r *CampaignRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	return r.first(ctx, models.CampaignFilter{Slug: &slug})
}

func (r *CampaignRepositoryImpl) first(ctx context.Context, filter models.CampaignFilter) (*models.Campaign, error) {
	rows, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// LockByUUID loads a campaign with SELECT ... FOR UPDATE
func (r *CampaignRepositoryImpl) LockByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", id).
		Take(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock campaign %s: %w", id, err)
	}

	return &campaign, nil
}

// Update persists the editable fields of a campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	campaign.UpdatedAt = utils.UTCNow()
	err = db.Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]any{
			"slug":       campaign.Slug,
			"name":       campaign.Name,
			"message":    campaign.Message,
			"updated_at": campaign.UpdatedAt,
		}).Error

	return finish(db, shouldCommit, err)
}

// Delete removes a campaign row
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Where("id = ?", id).Delete(&models.Campaign{}).Error
}

// summaryQuery selects campaigns with visit and active assignment counters
func (r *CampaignRepositoryImpl) summaryQuery(ctx context.Context) *gorm.DB {
	db := r.getDB(ctx)
	return db.Table("campaigns AS c").
		Select(`c.*,
			(SELECT COUNT(*) FROM visits v WHERE v.campaign_id = c.id) AS visitor_total,
			(SELECT COUNT(*) FROM campaign_operators co
				JOIN operators o ON o.id = co.operator_id
				WHERE co.campaign_id = c.id AND o.status = ?) AS operator_total`, models.OperatorStatusActive)
}

// ListSummaries returns campaigns newest first with their counters
func (r *CampaignRepositoryImpl) ListSummaries(ctx context.Context, limit, offset int) ([]*models.CampaignSummary, error) {
	var rows []*models.CampaignSummary
	if err := paginate(r.summaryQuery(ctx), "c.id DESC", limit, offset).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaign summaries: %w", err)
	}
	return rows, nil
}

// Summary returns one campaign with its counters
func (r *CampaignRepositoryImpl) Summary(ctx context.Context, id uint) (*models.CampaignSummary, error) {
	var rows []*models.CampaignSummary
	if err := r.summaryQuery(ctx).Where("c.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load campaign summary: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}

	var campaigns []*models.Campaign
	if err := paginate(query, orderBy, limit, offset).Find(&campaigns).Error; err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.Campaign{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if a campaign matching the filter exists
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	return db
}
