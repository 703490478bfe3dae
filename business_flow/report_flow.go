package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/amirphl/rotalink/utils"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	dashboardCacheKey    = "dashboard"
	visitorExportSheet   = "Visitors"
	defaultTopOperators  = 10
	maxExportVisitorRows = 100000
)

// ReportFlow serves the read side of the visit ledger
type ReportFlow interface {
	ListVisitors(ctx context.Context, campaignUUID string, page dto.PageRequest) (*dto.ListVisitorsResponse, error)
	ExportVisitors(ctx context.Context, campaignUUID string) (string, []byte, error)
	CampaignChart(ctx context.Context, campaignUUID string, req dto.DateRangeRequest) (*dto.CampaignChartResponse, error)
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	ProductiveOperators(ctx context.Context, req dto.ProductiveOperatorsRequest) (*dto.ProductiveOperatorsResponse, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	campaignRepo   repository.CampaignRepository
	operatorRepo   repository.OperatorRepository
	assignmentRepo repository.CampaignOperatorRepository
	visitRepo      repository.VisitRepository
	rc             *redis.Client
	cacheConfig    *config.CacheConfig
	routingConfig  *config.RoutingConfig
	logger         *zap.Logger
}

// NewReportFlow creates a report flow. rc may be nil, in which case the dashboard is computed on every call.
func NewReportFlow(
	campaignRepo repository.CampaignRepository,
	operatorRepo repository.OperatorRepository,
	assignmentRepo repository.CampaignOperatorRepository,
	visitRepo repository.VisitRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	routingConfig *config.RoutingConfig,
	logger *zap.Logger,
) ReportFlow {
	return &ReportFlowImpl{
		campaignRepo:   campaignRepo,
		operatorRepo:   operatorRepo,
		assignmentRepo: assignmentRepo,
		visitRepo:      visitRepo,
		rc:             rc,
		cacheConfig:    cacheConfig,
		routingConfig:  routingConfig,
		logger:         logger,
	}
}

func (f *ReportFlowImpl) campaign(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	id, err := parseUUID(campaignUUID, campaignNotFound())
	if err != nil {
		return nil, err
	}
	c, err := f.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if c == nil {
		return nil, campaignNotFound()
	}
	return c, nil
}

func (f *ReportFlowImpl) ListVisitors(ctx context.Context, campaignUUID string, page dto.PageRequest) (*dto.ListVisitorsResponse, error) {
	c, err := f.campaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	limit, offset := normalizePage(page.Limit, page.Offset)

	rows, err := f.visitRepo.ListVisitors(ctx, c.ID, limit, offset)
	if err != nil {
		return nil, NewBusinessError("VISITOR_LIST_FAILED", "Failed to list visitors", err)
	}
	total, err := f.visitRepo.Count(ctx, models.VisitFilter{CampaignID: &c.ID})
	if err != nil {
		return nil, NewBusinessError("VISITOR_LIST_FAILED", "Failed to count visitors", err)
	}

	items := make([]dto.VisitorDTO, 0, len(rows))
	for _, v := range rows {
		items = append(items, ToVisitorDTO(*v))
	}
	return &dto.ListVisitorsResponse{Items: items, Total: total}, nil
}

// ExportVisitors renders the visitor list of a campaign as an xlsx workbook
func (f *ReportFlowImpl) ExportVisitors(ctx context.Context, campaignUUID string) (string, []byte, error) {
	c, err := f.campaign(ctx, campaignUUID)
	if err != nil {
		return "", nil, err
	}

	rows, err := f.visitRepo.ListVisitors(ctx, c.ID, maxExportVisitorRows, 0)
	if err != nil {
		return "", nil, NewBusinessError("VISITOR_LIST_FAILED", "Failed to list visitors", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), visitorExportSheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare sheet", err)
	}
	header := []any{"Time", "Operator", "IP Address", "Device", "Location", "Maps"}
	if err := xl.SetSheetRow(visitorExportSheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write header", err)
	}

	for ri, v := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		values := []any{
			v.CreatedAt.UTC().Format(time.DateTime),
			v.OperatorName,
			v.IPAddress,
			v.Device.String(),
			v.Location,
			v.Maps,
		}
		if err := xl.SetSheetRow(visitorExportSheet, cellRef, &values); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write workbook", err)
	}

	filename := fmt.Sprintf("visitors_%s_%s.xlsx", c.Slug, utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func parseDateRange(start, end string) (time.Time, time.Time, []string, error) {
	from, err := utils.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid start date", ErrInvalidDateRange)
	}
	to, err := utils.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid end date", ErrInvalidDateRange)
	}
	days, err := utils.DateRange(from, to)
	if err != nil {
		return time.Time{}, time.Time{}, nil, NewBusinessError("INVALID_DATE_RANGE", err.Error(), ErrInvalidDateRange)
	}
	return from, to.AddDate(0, 0, 1), days, nil
}

// CampaignChart returns one daily series per operator over an inclusive date range.
// Currently assigned operators come first in assignment order, days without visits are 0.
func (f *ReportFlowImpl) CampaignChart(ctx context.Context, campaignUUID string, req dto.DateRangeRequest) (*dto.CampaignChartResponse, error) {
	c, err := f.campaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	from, to, days, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	counts, err := f.visitRepo.DailyCountsByOperator(ctx, c.ID, from, to)
	if err != nil {
		return nil, NewBusinessError("CHART_FAILED", "Failed to aggregate visits", err)
	}
	assignments, err := f.assignmentRepo.ListByCampaign(ctx, c.ID)
	if err != nil {
		return nil, NewBusinessError("CHART_FAILED", "Failed to load campaign operators", err)
	}

	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		dayIndex[d] = i
	}

	series := make([]dto.ChartSeriesDTO, 0, len(assignments))
	byOperator := make(map[uint]int)
	add := func(operatorID uint, name string) int {
		if idx, ok := byOperator[operatorID]; ok {
			return idx
		}
		series = append(series, dto.ChartSeriesDTO{Name: name, Data: make([]int64, len(days))})
		byOperator[operatorID] = len(series) - 1
		return len(series) - 1
	}
	for _, a := range assignments {
		add(a.OperatorID, a.OperatorName)
	}

	rest := make([]*models.OperatorDailyVisits, 0, len(counts))
	for _, row := range counts {
		if _, ok := byOperator[row.OperatorID]; !ok {
			rest = append(rest, row)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].OperatorID < rest[j].OperatorID })
	for _, row := range rest {
		add(row.OperatorID, row.OperatorName)
	}

	for _, row := range counts {
		di, ok := dayIndex[row.Day.UTC().Format(utils.DateLayout)]
		if !ok {
			continue
		}
		series[byOperator[row.OperatorID]].Data[di] += row.Total
	}

	return &dto.CampaignChartResponse{Series: series, Categories: days}, nil
}

func (f *ReportFlowImpl) dashboardKey() string {
	prefix := ""
	if f.cacheConfig != nil {
		prefix = f.cacheConfig.RedisPrefix
	}
	return prefix + dashboardCacheKey
}

// Dashboard returns ledger totals, served from redis while the cached copy is fresh
func (f *ReportFlowImpl) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	key := f.dashboardKey()
	if f.rc != nil {
		if bs, err := f.rc.Get(ctx, key).Bytes(); err == nil && len(bs) > 0 {
			var out dto.DashboardResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	out, err := f.computeDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if f.rc != nil && f.routingConfig != nil && f.routingConfig.DashboardCacheTTL > 0 {
		if bs, err := json.Marshal(out); err == nil {
			if err := f.rc.Set(ctx, key, bs, f.routingConfig.DashboardCacheTTL).Err(); err != nil {
				f.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return out, nil
}

func (f *ReportFlowImpl) computeDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	fail := func(err error) (*dto.DashboardResponse, error) {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to compute dashboard", err)
	}

	campaigns, err := f.campaignRepo.Count(ctx, models.CampaignFilter{})
	if err != nil {
		return fail(err)
	}
	operators, err := f.operatorRepo.Count(ctx, models.OperatorFilter{})
	if err != nil {
		return fail(err)
	}
	active := models.OperatorStatusActive
	activeOperators, err := f.operatorRepo.Count(ctx, models.OperatorFilter{Status: &active})
	if err != nil {
		return fail(err)
	}
	visits, err := f.visitRepo.Count(ctx, models.VisitFilter{})
	if err != nil {
		return fail(err)
	}
	now := utils.UTCNow()
	today := utils.StartOfDay(now)
	visitsToday, err := f.visitRepo.Count(ctx, models.VisitFilter{CreatedAfter: &today})
	if err != nil {
		return fail(err)
	}
	devices, err := f.visitRepo.DeviceTotals(ctx, nil, nil)
	if err != nil {
		return fail(err)
	}

	out := &dto.DashboardResponse{
		CampaignTotal:       campaigns,
		OperatorTotal:       operators,
		ActiveOperatorTotal: activeOperators,
		VisitTotal:          visits,
		VisitToday:          visitsToday,
		Devices:             make([]dto.DeviceTotalDTO, 0, len(devices)),
		GeneratedAt:         formatTime(now),
	}
	for _, d := range devices {
		out.Devices = append(out.Devices, dto.DeviceTotalDTO{Device: d.Device.String(), Total: d.Total})
	}
	return out, nil
}

// ProductiveOperators ranks operators by visits received over an inclusive date range
func (f *ReportFlowImpl) ProductiveOperators(ctx context.Context, req dto.ProductiveOperatorsRequest) (*dto.ProductiveOperatorsResponse, error) {
	from, to, _, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopOperators
	}

	rows, err := f.visitRepo.TopOperators(ctx, from, to, limit)
	if err != nil {
		return nil, NewBusinessError("PRODUCTIVE_OPERATORS_FAILED", "Failed to rank operators", err)
	}

	items := make([]dto.ProductiveOperatorDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.ProductiveOperatorDTO{
			OperatorUUID: r.OperatorUUID.String(),
			Name:         r.OperatorName,
			Total:        r.Total,
		})
	}
	return &dto.ProductiveOperatorsResponse{Items: items}, nil
}
