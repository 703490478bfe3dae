package businessflow

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CampaignFlow manages campaigns and their weighted operator assignments
type CampaignFlow interface {
	Create(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignDTO, error)
	Update(ctx context.Context, campaignUUID string, req *dto.UpdateCampaignRequest) (*dto.CampaignDTO, error)
	Get(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error)
	List(ctx context.Context, page dto.PageRequest) (*dto.ListCampaignsResponse, error)
	Delete(ctx context.Context, campaignUUID string) error
}

// CampaignFlowImpl implements CampaignFlow
type CampaignFlowImpl struct {
	campaignRepo   repository.CampaignRepository
	operatorRepo   repository.OperatorRepository
	assignmentRepo repository.CampaignOperatorRepository
	tx             repository.Transactor
	logger         *zap.Logger
}

func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	operatorRepo repository.OperatorRepository,
	assignmentRepo repository.CampaignOperatorRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:   campaignRepo,
		operatorRepo:   operatorRepo,
		assignmentRepo: assignmentRepo,
		tx:             tx,
		logger:         logger,
	}
}

func campaignNotFound() error {
	return NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
}

func slugTaken() error {
	return NewBusinessError("CAMPAIGN_SLUG_EXISTS", "Campaign slug already exists", ErrSlugAlreadyExists)
}

func validateSlug(slug string) (string, error) {
	slug = normalizeSlug(slug)
	if !ValidSlug(slug) {
		return "", NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Invalid campaign slug", ErrInvalidSlug)
	}
	return slug, nil
}

// resolveAssignments maps the requested operators to assignment rows in request order
func (f *CampaignFlowImpl) resolveAssignments(ctx context.Context, inputs []dto.CampaignOperatorInput) ([]*models.CampaignOperator, error) {
	if len(inputs) == 0 {
		return []*models.CampaignOperator{}, nil
	}

	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		id, err := uuid.Parse(strings.TrimSpace(in.OperatorUUID))
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Assigned operator not found", ErrAssignedOperatorMissing)
		}
		if in.Grade < 1 {
			return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Grade must be at least 1", ErrInvalidGrade)
		}
		if _, dup := seen[id]; dup {
			return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Operator assigned more than once", ErrDuplicateOperator)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	operators, err := f.operatorRepo.ByUUIDs(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LOOKUP_FAILED", "Failed to lookup operators", err)
	}
	byUUID := make(map[uuid.UUID]*models.Operator, len(operators))
	for _, op := range operators {
		byUUID[op.UUID] = op
	}

	rows := make([]*models.CampaignOperator, 0, len(inputs))
	for i, id := range ids {
		op, ok := byUUID[id]
		if !ok {
			return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Assigned operator not found", ErrAssignedOperatorMissing)
		}
		rows = append(rows, &models.CampaignOperator{
			UUID:       uuid.New(),
			OperatorID: op.ID,
			Grade:      inputs[i].Grade,
		})
	}
	return rows, nil
}

func (f *CampaignFlowImpl) Create(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignDTO, error) {
	slug, err := validateSlug(req.Slug)
	if err != nil {
		return nil, err
	}
	rows, err := f.resolveAssignments(ctx, req.Operators)
	if err != nil {
		return nil, err
	}

	existing, err := f.campaignRepo.BySlug(ctx, slug)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if existing != nil {
		return nil, slugTaken()
	}

	campaign := &models.Campaign{
		UUID:    uuid.New(),
		Slug:    slug,
		Name:    strings.TrimSpace(req.Name),
		Message: req.Message,
	}
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}
		return f.assignmentRepo.ReplaceForCampaign(txCtx, campaign.ID, rows)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, slugTaken()
		}
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}

	f.logger.Info("campaign created",
		zap.String("campaign_uuid", campaign.UUID.String()),
		zap.String("slug", campaign.Slug),
		zap.Int("operators", len(rows)))
	return f.describe(ctx, campaign.ID)
}

// Update edits the campaign under its row lock so no routing decision observes a
// half-applied change. A new operator list replaces the assignments and starts a new cycle.
func (f *CampaignFlowImpl) Update(ctx context.Context, campaignUUID string, req *dto.UpdateCampaignRequest) (*dto.CampaignDTO, error) {
	if req.Slug == nil && req.Name == nil && req.Message == nil && req.Operators == nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Nothing to update", ErrCampaignUpdateRequired)
	}
	id, err := parseUUID(campaignUUID, campaignNotFound())
	if err != nil {
		return nil, err
	}

	var slug string
	if req.Slug != nil {
		if slug, err = validateSlug(*req.Slug); err != nil {
			return nil, err
		}
	}
	var rows []*models.CampaignOperator
	if req.Operators != nil {
		if rows, err = f.resolveAssignments(ctx, *req.Operators); err != nil {
			return nil, err
		}
	}

	var campaignID uint
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		campaign, err := f.campaignRepo.LockByUUID(txCtx, id)
		if err != nil {
			return err
		}
		if campaign == nil {
			return campaignNotFound()
		}
		campaignID = campaign.ID

		if req.Slug != nil && slug != campaign.Slug {
			other, err := f.campaignRepo.BySlug(txCtx, slug)
			if err != nil {
				return err
			}
			if other != nil {
				return slugTaken()
			}
			campaign.Slug = slug
		}
		if req.Name != nil {
			campaign.Name = strings.TrimSpace(*req.Name)
		}
		if req.Message != nil {
			campaign.Message = *req.Message
		}
		if err := f.campaignRepo.Update(txCtx, campaign); err != nil {
			return err
		}

		if req.Operators != nil {
			return f.assignmentRepo.ReplaceForCampaign(txCtx, campaign.ID, rows)
		}
		return nil
	})
	if err != nil {
		var be *BusinessError
		if errors.As(err, &be) {
			return nil, be
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, slugTaken()
		}
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	f.logger.Info("campaign updated",
		zap.String("campaign_uuid", id.String()),
		zap.Bool("assignments_replaced", req.Operators != nil))
	return f.describe(ctx, campaignID)
}

func (f *CampaignFlowImpl) Get(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error) {
	id, err := parseUUID(campaignUUID, campaignNotFound())
	if err != nil {
		return nil, err
	}
	campaign, err := f.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, campaignNotFound()
	}
	return f.describe(ctx, campaign.ID)
}

// describe loads a campaign with its counters and assignments
func (f *CampaignFlowImpl) describe(ctx context.Context, campaignID uint) (*dto.CampaignDTO, error) {
	summary, err := f.campaignRepo.Summary(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if summary == nil {
		return nil, campaignNotFound()
	}
	assignments, err := f.assignmentRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to load campaign operators", err)
	}
	if assignments == nil {
		assignments = []*models.OperatorAssignment{}
	}
	out := ToCampaignDTO(*summary, assignments)
	return &out, nil
}

func (f *CampaignFlowImpl) List(ctx context.Context, page dto.PageRequest) (*dto.ListCampaignsResponse, error) {
	limit, offset := normalizePage(page.Limit, page.Offset)

	rows, err := f.campaignRepo.ListSummaries(ctx, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	total, err := f.campaignRepo.Count(ctx, models.CampaignFilter{})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(rows))
	for _, s := range rows {
		items = append(items, ToCampaignDTO(*s, nil))
	}
	return &dto.ListCampaignsResponse{Items: items, Total: total}, nil
}

// Delete removes the campaign and its assignments. Its visits stay in the ledger.
func (f *CampaignFlowImpl) Delete(ctx context.Context, campaignUUID string) error {
	id, err := parseUUID(campaignUUID, campaignNotFound())
	if err != nil {
		return err
	}

	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		campaign, err := f.campaignRepo.LockByUUID(txCtx, id)
		if err != nil {
			return err
		}
		if campaign == nil {
			return campaignNotFound()
		}
		if err := f.assignmentRepo.DeleteByCampaign(txCtx, campaign.ID); err != nil {
			return err
		}
		return f.campaignRepo.Delete(txCtx, campaign.ID)
	})
	if err != nil {
		var be *BusinessError
		if errors.As(err, &be) {
			return be
		}
		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "Failed to delete campaign", err)
	}

	f.logger.Info("campaign deleted", zap.String("campaign_uuid", id.String()))
	return nil
}
