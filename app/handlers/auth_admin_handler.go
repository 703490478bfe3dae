package handlers

import (
	"github.com/amirphl/rotalink/app/dto"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AdminHandlerInterface defines the contract for admin auth handlers
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
}

// AdminHandler implements AdminHandlerInterface
type AdminHandler struct {
	baseHandler
	flow businessflow.AdminAuthFlow
}

func NewAdminHandler(flow businessflow.AdminAuthFlow, v *validator.Validate, logger *zap.Logger) AdminHandlerInterface {
	return &AdminHandler{
		baseHandler: newBaseHandler(v, logger),
		flow:        flow,
	}
}

// Login authenticates an admin with username and password
// @Summary Admin login
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials or admin not found"
// @Failure 403 {object} dto.APIResponse "Admin inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Login failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}
