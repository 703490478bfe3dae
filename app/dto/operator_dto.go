package dto

// OperatorRequest is the payload for creating or replacing an operator
type OperatorRequest struct {
	Channel  int      `json:"channel" validate:"required,oneof=1 2 3" example:"1"`
	Identity string   `json:"identity" validate:"required,max=2048" example:"https://wa.me/6281234567890"`
	Schedule []string `json:"schedule" validate:"omitempty,dive,required,max=32" example:"monday,tuesday"`
	Name     string   `json:"name" validate:"required,max=255" example:"Siti"`
	Nickname string   `json:"nickname" validate:"omitempty,max=255" example:"siti"`
	Status   *int     `json:"status" validate:"omitempty,oneof=0 1" example:"1"`
}

type OperatorDTO struct {
	UUID      string   `json:"uuid"`
	Channel   int      `json:"channel"`
	Identity  string   `json:"identity"`
	Schedule  []string `json:"schedule"`
	Name      string   `json:"name"`
	Nickname  string   `json:"nickname"`
	Status    int      `json:"status"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type ListOperatorsResponse struct {
	Items []OperatorDTO `json:"items"`
	Total int64         `json:"total"`
}

// OperatorOptionDTO is one entry of the operator picker
type OperatorOptionDTO struct {
	Title string `json:"title" example:"Whatsapp - https://wa.me/628123 - Siti"`
	Value string `json:"value" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
}
