package handlers

import (
	"github.com/amirphl/rotalink/app/dto"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// CampaignHandlerInterface defines the contract for campaign management handlers
type CampaignHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type CampaignHandler struct {
	baseHandler
	flow businessflow.CampaignFlow
}

func NewCampaignHandler(flow businessflow.CampaignFlow, v *validator.Validate, logger *zap.Logger) CampaignHandlerInterface {
	return &CampaignHandler{
		baseHandler: newBaseHandler(v, logger),
		flow:        flow,
	}
}

// Create adds a campaign with its weighted operators
// @Summary Create campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCampaignRequest true "Campaign"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Slug already exists"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) Create(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/campaigns")
	defer cancel()

	out, err := h.flow.Create(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create campaign")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created", out)
}

// Update edits a campaign. A present operators list replaces the assignments and restarts the rotation.
// @Summary Update campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid} [patch]
func (h *CampaignHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	out, err := h.flow.Update(ctx, c.Params("uuid"), &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update campaign")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated", out)
}

// Get returns a campaign with its operators and counters
// @Summary Get campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	out, err := h.flow.Get(ctx, c.Params("uuid"))
	if err != nil {
		return h.flowError(c, err, "Failed to get campaign")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved", out)
}

// List returns campaigns newest first
// @Summary List campaigns
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) List(c fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &page); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/campaigns")
	defer cancel()

	out, err := h.flow.List(ctx, page)
	if err != nil {
		return h.flowError(c, err, "Failed to list campaigns")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved", out)
}

// Delete removes a campaign and its assignments
// @Summary Delete campaign
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid} [delete]
func (h *CampaignHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	if err := h.flow.Delete(ctx, c.Params("uuid")); err != nil {
		return h.flowError(c, err, "Failed to delete campaign")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted", nil)
}
