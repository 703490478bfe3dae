package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/rotalink/models"
	"gorm.io/gorm"
)

// VisitRepositoryImpl implements VisitRepository
type VisitRepositoryImpl struct {
	*BaseRepository[models.Visit, models.VisitFilter]
}

func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &VisitRepositoryImpl{BaseRepository: NewBaseRepository[models.Visit, models.VisitFilter](db)}
}

func (r *VisitRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Visit, error) {
	db := r.getDB(ctx)
	var row models.Visit
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListVisitors returns the visits of a campaign newest first, with the operator name
func (r *VisitRepositoryImpl) ListVisitors(ctx context.Context, campaignID uint, limit, offset int) ([]*models.VisitorRow, error) {
	db := r.getDB(ctx)
	query := db.Table("visits AS v").
		Select("v.uuid, o.name AS operator_name, v.ip_address, v.device, v.location, v.maps, v.created_at").
		Joins("LEFT JOIN operators o ON o.id = v.operator_id").
		Where("v.campaign_id = ?", campaignID)

	var rows []*models.VisitorRow
	if err := paginate(query, "v.id DESC", limit, offset).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list visitors of campaign %d: %w", campaignID, err)
	}
	return rows, nil
}

// DailyCountsByOperator groups the visits of a campaign in [from, to) by operator and UTC day
func (r *VisitRepositoryImpl) DailyCountsByOperator(ctx context.Context, campaignID uint, from, to time.Time) ([]*models.OperatorDailyVisits, error) {
	db := r.getDB(ctx)
	var rows []*models.OperatorDailyVisits
	err := db.Table("visits AS v").
		Select("v.operator_id, COALESCE(o.name, '') AS operator_name, date_trunc('day', v.created_at) AS day, COUNT(*) AS total").
		Joins("LEFT JOIN operators o ON o.id = v.operator_id").
		Where("v.campaign_id = ? AND v.created_at >= ? AND v.created_at < ?", campaignID, from, to).
		Group("v.operator_id, o.name, date_trunc('day', v.created_at)").
		Order("v.operator_id ASC, day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visits of campaign %d: %w", campaignID, err)
	}
	return rows, nil
}

// TopOperators ranks operators by visits received in [from, to)
func (r *VisitRepositoryImpl) TopOperators(ctx context.Context, from, to time.Time, limit int) ([]*models.OperatorVisitTotal, error) {
	db := r.getDB(ctx)
	query := db.Table("visits AS v").
		Select("o.uuid AS operator_uuid, o.name AS operator_name, COUNT(*) AS total").
		Joins("JOIN operators o ON o.id = v.operator_id").
		Where("v.created_at >= ? AND v.created_at < ?", from, to).
		Group("o.uuid, o.name")

	var rows []*models.OperatorVisitTotal
	if err := paginate(query, "total DESC, o.name ASC", limit, 0).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank operators: %w", err)
	}
	return rows, nil
}

// DeviceTotals counts visits per device class, optionally bounded in time
func (r *VisitRepositoryImpl) DeviceTotals(ctx context.Context, from, to *time.Time) ([]*models.DeviceVisitTotal, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Visit{}).Select("device, COUNT(*) AS total")
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var rows []*models.DeviceVisitTotal
	if err := query.Group("device").Order("device ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	return rows, nil
}

func (r *VisitRepositoryImpl) applyFilter(db *gorm.DB, f models.VisitFilter) *gorm.DB {
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.OperatorID != nil {
		db = db.Where("operator_id = ?", *f.OperatorID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *VisitRepositoryImpl) ByFilter(ctx context.Context, filter models.VisitFilter, orderBy string, limit, offset int) ([]*models.Visit, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Visit{}), filter)
	var rows []*models.Visit
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *VisitRepositoryImpl) Count(ctx context.Context, filter models.VisitFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Visit{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VisitRepositoryImpl) Exists(ctx context.Context, filter models.VisitFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
