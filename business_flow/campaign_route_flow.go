package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/rotalink/app/services"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignRouteFlow picks the operator that receives a campaign visit and records the visit.
// Public flow, no authentication required.
type CampaignRouteFlow interface {
	Route(ctx context.Context, slug string, clientIP string, userAgent *string) (string, error)
}

// CampaignRouteFlowImpl runs every routing decision of a campaign under the campaign row lock
type CampaignRouteFlowImpl struct {
	store     repository.AssignmentStore
	tx        repository.Transactor
	geo       services.GeoResolver
	publisher services.VisitEventPublisher
	txTimeout time.Duration
	logger    *zap.Logger
}

func NewCampaignRouteFlow(
	store repository.AssignmentStore,
	tx repository.Transactor,
	geo services.GeoResolver,
	publisher services.VisitEventPublisher,
	routingCfg *config.RoutingConfig,
	logger *zap.Logger,
) CampaignRouteFlow {
	return &CampaignRouteFlowImpl{
		store:     store,
		tx:        tx,
		geo:       geo,
		publisher: publisher,
		txTimeout: routingCfg.TxTimeout,
		logger:    logger,
	}
}

// Route returns the identity of the operator the visitor is sent to.
// Errors: ErrNoEligibleOperator, ErrRoutingExhausted or ErrStorageFailure, each wrapped in a BusinessError.
func (f *CampaignRouteFlowImpl) Route(ctx context.Context, slug string, clientIP string, userAgent *string) (string, error) {
	device := services.ClassifyDevice(userAgent)

	// Geolocation stays outside the transaction so a slow lookup never holds the campaign lock.
	geoCtx, cancelGeo := context.WithTimeout(ctx, utils.MaxGeoLookupTimeout)
	loc := f.geo.Resolve(geoCtx, clientIP)
	cancelGeo()

	// Once started, the unit of work ignores caller cancellation and either commits or rolls back.
	txCtx, cancelTx := context.WithTimeout(context.WithoutCancel(ctx), f.txTimeout)
	defer cancelTx()

	started := time.Now()
	var (
		decision RoutingDecision
		visit    *models.Visit
	)
	err := f.tx.WithTransaction(txCtx, func(txCtx context.Context) error {
		campaign, err := f.store.LockCampaignBySlug(txCtx, slug)
		if err != nil {
			return storageError("Failed to lock campaign", err)
		}
		if campaign == nil {
			return NewBusinessError("NO_ELIGIBLE_OPERATOR", "No operator is available for this campaign", ErrNoEligibleOperator)
		}

		assignments, err := f.store.ListActiveBySlug(txCtx, slug)
		if err != nil {
			return storageError("Failed to load campaign operators", err)
		}

		decision, err = SelectAssignment(assignments)
		if err != nil {
			if IsRoutingExhausted(err) {
				return NewBusinessError("ROUTING_EXHAUSTED", "Campaign rotation is exhausted", err)
			}
			return NewBusinessError("NO_ELIGIBLE_OPERATOR", "No operator is available for this campaign", err)
		}

		visit = &models.Visit{
			UUID:         uuid.New(),
			CampaignID:   campaign.ID,
			OperatorID:   decision.Selected.OperatorID,
			AssignmentID: decision.Selected.ID,
			IPAddress:    clientIP,
			Device:       device,
			Location:     loc.Location,
			Maps:         loc.MapLink,
			CreatedAt:    utils.UTCNow(),
		}
		if err := f.store.ApplyRoutingOutcome(txCtx, campaign.ID, decision.Selected.ID, decision.Reset, visit); err != nil {
			return storageError("Failed to record routing outcome", err)
		}
		return nil
	})
	campaignRouteDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		return "", f.routeFailed(ctx, slug, err)
	}

	campaignRoutes.WithLabelValues(routeOutcomeRouted).Inc()
	if decision.Reset {
		campaignCycleResets.Inc()
	}

	f.publish(ctx, slug, decision, visit)

	return decision.Selected.Identity, nil
}

func (f *CampaignRouteFlowImpl) routeFailed(ctx context.Context, slug string, err error) error {
	fields := []zap.Field{
		zap.String("slug", slug),
		zap.String("request_id", utils.RequestID(ctx)),
	}

	switch {
	case IsNoEligibleOperator(err):
		campaignRoutes.WithLabelValues(routeOutcomeNoEligible).Inc()
		f.logger.Info("No eligible operator for campaign", fields...)
		return err
	case IsRoutingExhausted(err):
		// Counters are out of step with the cycle; this needs an operator to look at the campaign.
		campaignRoutes.WithLabelValues(routeOutcomeExhausted).Inc()
		f.logger.Error("Campaign rotation exhausted", append(fields, zap.String("code", "ROUTING_EXHAUSTED"))...)
		return err
	default:
		campaignRoutes.WithLabelValues(routeOutcomeStorage).Inc()
		f.logger.Error("Campaign routing failed", append(fields, zap.Error(err))...)
		if IsStorageFailure(err) {
			return err
		}
		return storageError("Failed to commit routing outcome", err)
	}
}

func (f *CampaignRouteFlowImpl) publish(ctx context.Context, slug string, decision RoutingDecision, visit *models.Visit) {
	event := services.VisitEvent{
		Type:         services.VisitEventType,
		VisitUUID:    visit.UUID,
		CampaignSlug: slug,
		OperatorUUID: decision.Selected.OperatorUUID,
		Device:       visit.Device.String(),
		Location:     visit.Location,
		CycleReset:   decision.Reset,
		OccurredAt:   visit.CreatedAt,
	}
	if err := f.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		f.logger.Warn("Visit event not published",
			zap.String("visit_uuid", visit.UUID.String()),
			zap.Error(err))
	}
}
