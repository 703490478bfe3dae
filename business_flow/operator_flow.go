package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OperatorFlow manages the operators campaigns route to
type OperatorFlow interface {
	Create(ctx context.Context, req *dto.OperatorRequest) (*dto.OperatorDTO, error)
	Update(ctx context.Context, operatorUUID string, req *dto.OperatorRequest) (*dto.OperatorDTO, error)
	Get(ctx context.Context, operatorUUID string) (*dto.OperatorDTO, error)
	List(ctx context.Context, page dto.PageRequest) (*dto.ListOperatorsResponse, error)
	Delete(ctx context.Context, operatorUUID string) error
	Options(ctx context.Context) ([]dto.OperatorOptionDTO, error)
}

// OperatorFlowImpl implements OperatorFlow
type OperatorFlowImpl struct {
	operatorRepo   repository.OperatorRepository
	assignmentRepo repository.CampaignOperatorRepository
	tx             repository.Transactor
	logger         *zap.Logger
}

func NewOperatorFlow(
	operatorRepo repository.OperatorRepository,
	assignmentRepo repository.CampaignOperatorRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) OperatorFlow {
	return &OperatorFlowImpl{
		operatorRepo:   operatorRepo,
		assignmentRepo: assignmentRepo,
		tx:             tx,
		logger:         logger,
	}
}

func operatorFromRequest(req *dto.OperatorRequest, op *models.Operator) error {
	channel := models.OperatorChannel(req.Channel)
	if !channel.Valid() {
		return NewBusinessError("OPERATOR_VALIDATION_FAILED", "Invalid operator channel", ErrInvalidOperatorChannel)
	}
	status := models.OperatorStatusActive
	if req.Status != nil {
		status = models.OperatorStatus(*req.Status)
		if !status.Valid() {
			return NewBusinessError("OPERATOR_VALIDATION_FAILED", "Invalid operator status", ErrInvalidOperatorStatus)
		}
	}

	days := make([]string, 0, len(req.Schedule))
	for _, d := range req.Schedule {
		if d = strings.TrimSpace(d); d != "" {
			days = append(days, strings.ToLower(d))
		}
	}

	op.Channel = channel
	op.Identity = strings.TrimSpace(req.Identity)
	op.Schedule = strings.Join(days, ",")
	op.Name = strings.TrimSpace(req.Name)
	op.Nickname = strings.TrimSpace(req.Nickname)
	op.Status = status
	return nil
}

func (f *OperatorFlowImpl) Create(ctx context.Context, req *dto.OperatorRequest) (*dto.OperatorDTO, error) {
	op := &models.Operator{UUID: uuid.New()}
	if err := operatorFromRequest(req, op); err != nil {
		return nil, err
	}

	if err := f.operatorRepo.Save(ctx, op); err != nil {
		return nil, NewBusinessError("OPERATOR_CREATE_FAILED", "Failed to create operator", err)
	}

	f.logger.Info("operator created", zap.String("operator_uuid", op.UUID.String()), zap.String("channel", op.Channel.String()))
	out := ToOperatorDTO(*op)
	return &out, nil
}

func (f *OperatorFlowImpl) load(ctx context.Context, operatorUUID string) (*models.Operator, error) {
	id, err := parseUUID(operatorUUID, NewBusinessError("OPERATOR_NOT_FOUND", "Operator not found", ErrOperatorNotFound))
	if err != nil {
		return nil, err
	}
	op, err := f.operatorRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LOOKUP_FAILED", "Failed to lookup operator", err)
	}
	if op == nil {
		return nil, NewBusinessError("OPERATOR_NOT_FOUND", "Operator not found", ErrOperatorNotFound)
	}
	return op, nil
}

// Update replaces the editable fields of an operator. A status change restarts the
// rotation cycle of every campaign the operator is assigned to.
func (f *OperatorFlowImpl) Update(ctx context.Context, operatorUUID string, req *dto.OperatorRequest) (*dto.OperatorDTO, error) {
	op, err := f.load(ctx, operatorUUID)
	if err != nil {
		return nil, err
	}
	prevStatus := op.Status
	if err := operatorFromRequest(req, op); err != nil {
		return nil, err
	}

	var affected []uint
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if op.Status != prevStatus {
			ids, err := f.assignmentRepo.CampaignIDsByOperator(txCtx, op.ID)
			if err != nil {
				return err
			}
			if err := f.assignmentRepo.ResetHandles(txCtx, ids); err != nil {
				return err
			}
			affected = ids
		}
		return f.operatorRepo.Update(txCtx, op)
	})
	if err != nil {
		return nil, NewBusinessError("OPERATOR_UPDATE_FAILED", "Failed to update operator", err)
	}

	if len(affected) > 0 {
		f.logger.Info("rotation reset after operator status change",
			zap.String("operator_uuid", op.UUID.String()),
			zap.Int16("status", int16(op.Status)),
			zap.Uints("campaign_ids", affected))
	}
	out := ToOperatorDTO(*op)
	return &out, nil
}

func (f *OperatorFlowImpl) Get(ctx context.Context, operatorUUID string) (*dto.OperatorDTO, error) {
	op, err := f.load(ctx, operatorUUID)
	if err != nil {
		return nil, err
	}
	out := ToOperatorDTO(*op)
	return &out, nil
}

func (f *OperatorFlowImpl) List(ctx context.Context, page dto.PageRequest) (*dto.ListOperatorsResponse, error) {
	limit, offset := normalizePage(page.Limit, page.Offset)

	rows, err := f.operatorRepo.ByFilter(ctx, models.OperatorFilter{}, "id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LIST_FAILED", "Failed to list operators", err)
	}
	total, err := f.operatorRepo.Count(ctx, models.OperatorFilter{})
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LIST_FAILED", "Failed to count operators", err)
	}

	items := make([]dto.OperatorDTO, 0, len(rows))
	for _, op := range rows {
		items = append(items, ToOperatorDTO(*op))
	}
	return &dto.ListOperatorsResponse{Items: items, Total: total}, nil
}

// Delete removes the operator and its assignments. Campaigns that lose an
// assignment start a new rotation cycle; recorded visits are kept.
func (f *OperatorFlowImpl) Delete(ctx context.Context, operatorUUID string) error {
	op, err := f.load(ctx, operatorUUID)
	if err != nil {
		return err
	}

	var affected []uint
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		ids, err := f.assignmentRepo.CampaignIDsByOperator(txCtx, op.ID)
		if err != nil {
			return err
		}
		if err := f.assignmentRepo.ResetHandles(txCtx, ids); err != nil {
			return err
		}
		if err := f.assignmentRepo.DeleteByOperator(txCtx, op.ID); err != nil {
			return err
		}
		affected = ids
		return f.operatorRepo.Delete(txCtx, op.ID)
	})
	if err != nil {
		return NewBusinessError("OPERATOR_DELETE_FAILED", "Failed to delete operator", err)
	}

	f.logger.Info("operator deleted",
		zap.String("operator_uuid", op.UUID.String()),
		zap.Uints("campaign_ids", affected))
	return nil
}

// Options lists active operators for assignment pickers
func (f *OperatorFlowImpl) Options(ctx context.Context) ([]dto.OperatorOptionDTO, error) {
	active := models.OperatorStatusActive
	rows, err := f.operatorRepo.ByFilter(ctx, models.OperatorFilter{Status: &active}, "name ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LIST_FAILED", "Failed to list operators", err)
	}

	out := make([]dto.OperatorOptionDTO, 0, len(rows))
	for _, op := range rows {
		out = append(out, dto.OperatorOptionDTO{Title: op.OptionTitle(), Value: op.UUID.String()})
	}
	return out, nil
}
