package businessflow

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_-]{0,126}[a-z0-9])?$`)

// reservedSlugs collide with routes served next to /{slug}
var reservedSlugs = []string{"api", "health", "metrics"}

// ValidSlug reports whether slug can be used as a campaign path segment
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug) && !slices.Contains(reservedSlugs, slug)
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// normalizePage clamps list pagination
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseUUID(s string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ToOperatorDTO converts an operator to its API representation
func ToOperatorDTO(o models.Operator) dto.OperatorDTO {
	return dto.OperatorDTO{
		UUID:      o.UUID.String(),
		Channel:   int(o.Channel),
		Identity:  o.Identity,
		Schedule:  o.ScheduleDays(),
		Name:      o.Name,
		Nickname:  o.Nickname,
		Status:    int(o.Status),
		CreatedAt: formatTime(o.CreatedAt),
		UpdatedAt: formatTime(o.UpdatedAt),
	}
}

// ToCampaignDTO converts a campaign summary and its assignments to the API representation
func ToCampaignDTO(s models.CampaignSummary, assignments []*models.OperatorAssignment) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:          s.UUID.String(),
		Slug:          s.Slug,
		Name:          s.Name,
		Message:       s.Message,
		VisitorTotal:  s.VisitorTotal,
		OperatorTotal: s.OperatorTotal,
		CreatedAt:     formatTime(s.CreatedAt),
		UpdatedAt:     formatTime(s.UpdatedAt),
	}
	if assignments != nil {
		out.Operators = make([]dto.CampaignOperatorDTO, 0, len(assignments))
		for _, a := range assignments {
			out.Operators = append(out.Operators, dto.CampaignOperatorDTO{
				OperatorUUID: a.OperatorUUID.String(),
				Name:         a.OperatorName,
				Identity:     a.Identity,
				Grade:        a.Grade,
				Handle:       a.Handle,
			})
		}
	}
	return out
}

// ToVisitorDTO converts a ledger row to the API representation
func ToVisitorDTO(v models.VisitorRow) dto.VisitorDTO {
	return dto.VisitorDTO{
		UUID:         v.UUID.String(),
		OperatorName: v.OperatorName,
		IPAddress:    v.IPAddress,
		Device:       v.Device.String(),
		Location:     v.Location,
		Maps:         v.Maps,
		CreatedAt:    formatTime(v.CreatedAt),
	}
}

// ToAdminDTO converts an admin to the API representation
func ToAdminDTO(a models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		UUID:      a.UUID.String(),
		Username:  a.Username,
		IsActive:  utils.IsTrue(a.IsActive),
		CreatedAt: formatTime(a.CreatedAt),
	}
}
