package handlers

import (
	"github.com/amirphl/rotalink/app/dto"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// OperatorHandlerInterface defines the contract for operator management handlers
type OperatorHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Options(c fiber.Ctx) error
}

type OperatorHandler struct {
	baseHandler
	flow businessflow.OperatorFlow
}

func NewOperatorHandler(flow businessflow.OperatorFlow, v *validator.Validate, logger *zap.Logger) OperatorHandlerInterface {
	return &OperatorHandler{
		baseHandler: newBaseHandler(v, logger),
		flow:        flow,
	}
}

// Create adds an operator
// @Summary Create operator
// @Tags Operators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.OperatorRequest true "Operator"
// @Success 201 {object} dto.APIResponse{data=dto.OperatorDTO}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/operators [post]
func (h *OperatorHandler) Create(c fiber.Ctx) error {
	var req dto.OperatorRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/operators")
	defer cancel()

	out, err := h.flow.Create(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create operator")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Operator created", out)
}

// Update replaces an operator
// @Summary Update operator
// @Tags Operators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Operator UUID"
// @Param request body dto.OperatorRequest true "Operator"
// @Success 200 {object} dto.APIResponse{data=dto.OperatorDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/operators/{uuid} [patch]
func (h *OperatorHandler) Update(c fiber.Ctx) error {
	var req dto.OperatorRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/operators/:uuid")
	defer cancel()

	out, err := h.flow.Update(ctx, c.Params("uuid"), &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update operator")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operator updated", out)
}

// Get returns one operator
// @Summary Get operator
// @Tags Operators
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Operator UUID"
// @Success 200 {object} dto.APIResponse{data=dto.OperatorDTO}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/operators/{uuid} [get]
func (h *OperatorHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/operators/:uuid")
	defer cancel()

	out, err := h.flow.Get(ctx, c.Params("uuid"))
	if err != nil {
		return h.flowError(c, err, "Failed to get operator")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operator retrieved", out)
}

// List returns operators newest first
// @Summary List operators
// @Tags Operators
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListOperatorsResponse}
// @Router /api/v1/operators [get]
func (h *OperatorHandler) List(c fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &page); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/operators")
	defer cancel()

	out, err := h.flow.List(ctx, page)
	if err != nil {
		return h.flowError(c, err, "Failed to list operators")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operators retrieved", out)
}

// Delete removes an operator and its campaign assignments
// @Summary Delete operator
// @Tags Operators
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Operator UUID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/operators/{uuid} [delete]
func (h *OperatorHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/operators/:uuid")
	defer cancel()

	if err := h.flow.Delete(ctx, c.Params("uuid")); err != nil {
		return h.flowError(c, err, "Failed to delete operator")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operator deleted", nil)
}

// Options lists active operators for assignment pickers
// @Summary Operator options
// @Tags Operators
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.OperatorOptionDTO}
// @Router /api/v1/operators/options [get]
func (h *OperatorHandler) Options(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/operators/options")
	defer cancel()

	out, err := h.flow.Options(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to list operator options")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operator options retrieved", out)
}
