package handlers

import (
	"time"

	"github.com/amirphl/rotalink/app/dto"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const exportTimeout = 2 * time.Minute

// ReportHandlerInterface defines the contract for visitor reports and the dashboard
type ReportHandlerInterface interface {
	ListVisitors(c fiber.Ctx) error
	ExportVisitors(c fiber.Ctx) error
	CampaignChart(c fiber.Ctx) error
	Dashboard(c fiber.Ctx) error
	ProductiveOperators(c fiber.Ctx) error
}

type ReportHandler struct {
	baseHandler
	flow businessflow.ReportFlow
}

func NewReportHandler(flow businessflow.ReportFlow, v *validator.Validate, logger *zap.Logger) ReportHandlerInterface {
	return &ReportHandler{
		baseHandler: newBaseHandler(v, logger),
		flow:        flow,
	}
}

// ListVisitors returns the visits of a campaign newest first
// @Summary List campaign visitors
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListVisitorsResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid}/visitors [get]
func (h *ReportHandler) ListVisitors(c fiber.Ctx) error {
	page, err := pageRequest(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &page); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/campaigns/:uuid/visitors")
	defer cancel()

	out, err := h.flow.ListVisitors(ctx, c.Params("uuid"), page)
	if err != nil {
		return h.flowError(c, err, "Failed to list visitors")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Visitors retrieved", out)
}

// ExportVisitors downloads the visits of a campaign as an Excel workbook
// @Summary Export campaign visitors
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Success 200 {file} file
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid}/visitors/export [get]
func (h *ReportHandler) ExportVisitors(c fiber.Ctx) error {
	ctx, cancel := h.requestContextWithTimeout(c, "/api/v1/campaigns/:uuid/visitors/export", exportTimeout)
	defer cancel()

	filename, data, err := h.flow.ExportVisitors(ctx, c.Params("uuid"))
	if err != nil {
		return h.flowError(c, err, "Failed to generate Excel")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}

// CampaignChart returns per operator daily visit series
// @Summary Campaign chart
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Campaign UUID"
// @Param start_date query string true "First day (YYYY-MM-DD)"
// @Param end_date query string true "Last day (YYYY-MM-DD), inclusive"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignChartResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/campaigns/{uuid}/chart [get]
func (h *ReportHandler) CampaignChart(c fiber.Ctx) error {
	var req dto.DateRangeRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/campaigns/:uuid/chart")
	defer cancel()

	out, err := h.flow.CampaignChart(ctx, c.Params("uuid"), req)
	if err != nil {
		return h.flowError(c, err, "Failed to build chart")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Chart retrieved", out)
}

// Dashboard returns ledger totals
// @Summary Dashboard
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardResponse}
// @Router /api/v1/dashboard [get]
func (h *ReportHandler) Dashboard(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c, "/api/v1/dashboard")
	defer cancel()

	out, err := h.flow.Dashboard(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to compute dashboard")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard retrieved", out)
}

// ProductiveOperators ranks operators by visits received
// @Summary Productive operators
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string true "First day (YYYY-MM-DD)"
// @Param end_date query string true "Last day (YYYY-MM-DD), inclusive"
// @Param limit query int false "Number of operators"
// @Success 200 {object} dto.APIResponse{data=dto.ProductiveOperatorsResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/dashboard/productive-operators [get]
func (h *ReportHandler) ProductiveOperators(c fiber.Ctx) error {
	var req dto.ProductiveOperatorsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c, "/api/v1/dashboard/productive-operators")
	defer cancel()

	out, err := h.flow.ProductiveOperators(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to rank operators")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Productive operators retrieved", out)
}
