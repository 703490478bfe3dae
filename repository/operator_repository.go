package repository

import (
	"context"
	"errors"

	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OperatorRepositoryImpl implements OperatorRepository interface
type OperatorRepositoryImpl struct {
	*BaseRepository[models.Operator, models.OperatorFilter]
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &OperatorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Operator, models.OperatorFilter](db),
	}
}

func (r *OperatorRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Operator, error) {
	db := r.getDB(ctx)
	var row models.Operator
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *OperatorRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	rows, err := r.ByFilter(ctx, models.OperatorFilter{UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *OperatorRepositoryImpl) ByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Operator, error) {
	if len(ids) == 0 {
		return []*models.Operator{}, nil
	}
	return r.ByFilter(ctx, models.OperatorFilter{UUIDs: ids}, "id ASC", 0, 0)
}

// Update persists the editable fields of an operator
func (r *OperatorRepositoryImpl) Update(ctx context.Context, operator *models.Operator) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	operator.UpdatedAt = utils.UTCNow()
	err = db.Model(&models.Operator{}).
		Where("id = ?", operator.ID).
		Updates(map[string]any{
			"channel":    operator.Channel,
			"identity":   operator.Identity,
			"schedule":   operator.Schedule,
			"name":       operator.Name,
			"nickname":   operator.Nickname,
			"status":     operator.Status,
			"updated_at": operator.UpdatedAt,
		}).Error

	return finish(db, shouldCommit, err)
}

func (r *OperatorRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	return db.Where("id = ?", id).Delete(&models.Operator{}).Error
}

func (r *OperatorRepositoryImpl) applyFilter(db *gorm.DB, f models.OperatorFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if len(f.UUIDs) > 0 {
		db = db.Where("uuid IN ?", f.UUIDs)
	}
	if f.Channel != nil {
		db = db.Where("channel = ?", *f.Channel)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *OperatorRepositoryImpl) ByFilter(ctx context.Context, filter models.OperatorFilter, orderBy string, limit, offset int) ([]*models.Operator, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Operator{}), filter)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	var rows []*models.Operator
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OperatorRepositoryImpl) Count(ctx context.Context, filter models.OperatorFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Operator{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *OperatorRepositoryImpl) Exists(ctx context.Context, filter models.OperatorFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
