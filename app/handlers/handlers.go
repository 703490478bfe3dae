// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/app/middleware"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/amirphl/rotalink/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

// NewValidator returns a validator with the custom tags used by request DTOs
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return businessflow.ValidSlug(fl.Field().String())
	})
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a UUID"
	case "datetime":
		return err.Field() + " must be a date in format " + err.Param()
	case "slug":
		return err.Field() + " must contain lowercase letters, digits, '-' or '_' and must not be a reserved path"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBaseHandler(v *validator.Validate, logger *zap.Logger) baseHandler {
	if v == nil {
		v = NewValidator()
	}
	return baseHandler{validator: v, logger: logger}
}

// ErrorResponse standard JSON error
func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate writes a 400 response and returns false when req fails validation
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		messages := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			messages = append(messages, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}
	return true, nil
}

// flowError maps business errors to HTTP responses
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallback string) error {
	code := "INTERNAL_ERROR"
	message := fallback
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
		message = be.Message
	}

	status := fiber.StatusInternalServerError
	switch {
	case businessflow.IsCampaignNotFound(err), businessflow.IsOperatorNotFound(err):
		status = fiber.StatusNotFound
	case businessflow.IsSlugAlreadyExists(err), businessflow.IsUsernameTaken(err):
		status = fiber.StatusConflict
	case businessflow.IsValidationError(err):
		status = fiber.StatusBadRequest
	case businessflow.IsAdminNotFound(err), businessflow.IsIncorrectPassword(err):
		status = fiber.StatusUnauthorized
	case businessflow.IsAdminInactive(err):
		status = fiber.StatusForbidden
	}

	if status >= fiber.StatusInternalServerError {
		h.logger.Error(fallback,
			zap.String("code", code),
			zap.String("request_id", requestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err))
		message = fallback
	}
	return h.ErrorResponse(c, status, message, code, nil)
}

// requestContext builds the request-scoped context handed to business flows
func (h *baseHandler) requestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.requestContextWithTimeout(c, endpoint, defaultRequestTimeout)
}

func (h *baseHandler) requestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	if adminID, ok := middleware.GetAdminIDFromContext(c); ok {
		ctx = context.WithValue(ctx, utils.AdminIDKey, adminID)
	}
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id := requestid.FromContext(c); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

func pageRequest(c fiber.Ctx) (dto.PageRequest, error) {
	var page dto.PageRequest
	err := c.Bind().Query(&page)
	return page, err
}
