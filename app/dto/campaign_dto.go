package dto

// CampaignOperatorInput assigns an operator to a campaign with a weight
type CampaignOperatorInput struct {
	OperatorUUID string `json:"operator_uuid" validate:"required,uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Grade        int    `json:"grade" validate:"required,min=1,max=1000" example:"3"`
}

type CreateCampaignRequest struct {
	Slug      string                  `json:"slug" validate:"required,min=1,max=128,slug" example:"ramadan-promo"`
	Name      string                  `json:"name" validate:"required,max=255" example:"Ramadan promo"`
	Message   string                  `json:"message" validate:"omitempty,max=4096"`
	Operators []CampaignOperatorInput `json:"operators" validate:"omitempty,dive"`
}

// UpdateCampaignRequest updates the given fields; Operators, when present, replaces the assignment set
type UpdateCampaignRequest struct {
	Slug      *string                  `json:"slug" validate:"omitempty,min=1,max=128,slug"`
	Name      *string                  `json:"name" validate:"omitempty,max=255"`
	Message   *string                  `json:"message" validate:"omitempty,max=4096"`
	Operators *[]CampaignOperatorInput `json:"operators" validate:"omitempty,dive"`
}

type CampaignOperatorDTO struct {
	OperatorUUID string `json:"operator_uuid"`
	Name         string `json:"name"`
	Identity     string `json:"identity"`
	Grade        int    `json:"grade"`
	Handle       int    `json:"handle"`
}

type CampaignDTO struct {
	UUID          string                `json:"uuid"`
	Slug          string                `json:"slug"`
	Name          string                `json:"name"`
	Message       string                `json:"message"`
	VisitorTotal  int64                 `json:"visitor_total"`
	OperatorTotal int64                 `json:"operator_total"`
	Operators     []CampaignOperatorDTO `json:"operators,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
	Total int64         `json:"total"`
}
