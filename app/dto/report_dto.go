package dto

type VisitorDTO struct {
	UUID         string `json:"uuid"`
	OperatorName string `json:"operator_name"`
	IPAddress    string `json:"ip_address"`
	Device       string `json:"device"`
	Location     string `json:"location"`
	Maps         string `json:"maps"`
	CreatedAt    string `json:"created_at"`
}

type ListVisitorsResponse struct {
	Items []VisitorDTO `json:"items"`
	Total int64        `json:"total"`
}

// DateRangeRequest bounds a report with inclusive calendar dates (YYYY-MM-DD)
type DateRangeRequest struct {
	StartDate string `query:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"required,datetime=2006-01-02"`
}

type ChartSeriesDTO struct {
	Name string  `json:"name"`
	Data []int64 `json:"data"`
}

type CampaignChartResponse struct {
	Series     []ChartSeriesDTO `json:"series"`
	Categories []string         `json:"categories"`
}

type DeviceTotalDTO struct {
	Device string `json:"device"`
	Total  int64  `json:"total"`
}

type DashboardResponse struct {
	CampaignTotal       int64            `json:"campaign_total"`
	OperatorTotal       int64            `json:"operator_total"`
	ActiveOperatorTotal int64            `json:"active_operator_total"`
	VisitTotal          int64            `json:"visit_total"`
	VisitToday          int64            `json:"visit_today"`
	Devices             []DeviceTotalDTO `json:"devices"`
	GeneratedAt         string           `json:"generated_at"`
}

type ProductiveOperatorsRequest struct {
	StartDate string `query:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"required,datetime=2006-01-02"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type ProductiveOperatorDTO struct {
	OperatorUUID string `json:"operator_uuid"`
	Name         string `json:"name"`
	Total        int64  `json:"total"`
}

type ProductiveOperatorsResponse struct {
	Items []ProductiveOperatorDTO `json:"items"`
}
