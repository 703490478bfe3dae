package handlers

import (
	"strings"

	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// RedirectHandlerInterface defines the contract for the public campaign link
type RedirectHandlerInterface interface {
	Visit(c fiber.Ctx) error
}

type RedirectHandler struct {
	baseHandler
	flow businessflow.CampaignRouteFlow
}

func NewRedirectHandler(flow businessflow.CampaignRouteFlow, v *validator.Validate, logger *zap.Logger) RedirectHandlerInterface {
	return &RedirectHandler{
		baseHandler: newBaseHandler(v, logger),
		flow:        flow,
	}
}

// Visit routes the visitor to the next operator of the campaign
// @Summary Visit campaign link
// @Tags Redirect
// @Produce json
// @Param slug path string true "Campaign slug"
// @Success 302 {string} string "Redirect to the operator identity"
// @Failure 404 {object} dto.APIResponse "Unknown campaign or no active operator"
// @Failure 503 {object} dto.APIResponse "Every operator reached its grade"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /{slug} [get]
func (h *RedirectHandler) Visit(c fiber.Ctx) error {
	slug := strings.ToLower(strings.TrimSpace(c.Params("slug")))
	if slug == "" {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "NO_ELIGIBLE_OPERATOR", nil)
	}
	ua := c.Get(fiber.HeaderUserAgent)

	ctx, cancel := h.requestContext(c, "/"+slug)
	defer cancel()

	target, err := h.flow.Route(ctx, slug, c.IP(), &ua)
	if err != nil {
		switch {
		case businessflow.IsNoEligibleOperator(err):
			return h.ErrorResponse(c, fiber.StatusNotFound, "No operator is available for this campaign", "NO_ELIGIBLE_OPERATOR", nil)
		case businessflow.IsRoutingExhausted(err):
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Campaign operators are temporarily unavailable", "ROUTING_EXHAUSTED", nil)
		default:
			h.logger.Error("campaign routing failed",
				zap.String("slug", slug),
				zap.String("request_id", requestID(c)),
				zap.Error(err))
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to route visit", "ROUTING_STORAGE_FAILED", nil)
		}
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect().Status(fiber.StatusFound).To(target)
}
