package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/rotalink/app/dto"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRouteFlow struct {
	target  string
	err     error
	gotSlug string
	gotUA   string
}

func (s *stubRouteFlow) Route(_ context.Context, slug, _ string, ua *string) (string, error) {
	s.gotSlug = slug
	if ua != nil {
		s.gotUA = *ua
	}
	return s.target, s.err
}

func decodeEnvelope(t *testing.T, body io.Reader) dto.APIResponse {
	t.Helper()
	var out dto.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp dto.APIResponse) string {
	t.Helper()
	detail, ok := resp.Error.(map[string]any)
	require.True(t, ok)
	code, _ := detail["code"].(string)
	return code
}

func TestRedirectHandler_Visit(t *testing.T) {
	tests := []struct {
		name       string
		flow       *stubRouteFlow
		wantStatus int
		wantCode   string
	}{
		{
			name:       "redirects to operator identity",
			flow:       &stubRouteFlow{target: "https://wa.me/628123"},
			wantStatus: fiber.StatusFound,
		},
		{
			name:       "no eligible operator",
			flow:       &stubRouteFlow{err: businessflow.NewBusinessError("NO_ELIGIBLE_OPERATOR", "x", businessflow.ErrNoEligibleOperator)},
			wantStatus: fiber.StatusNotFound,
			wantCode:   "NO_ELIGIBLE_OPERATOR",
		},
		{
			name:       "routing exhausted",
			flow:       &stubRouteFlow{err: businessflow.NewBusinessError("ROUTING_EXHAUSTED", "x", businessflow.ErrRoutingExhausted)},
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   "ROUTING_EXHAUSTED",
		},
		{
			name:       "storage failure",
			flow:       &stubRouteFlow{err: businessflow.NewBusinessError("ROUTING_STORAGE_FAILED", "x", businessflow.ErrStorageFailure)},
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "ROUTING_STORAGE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/:slug", NewRedirectHandler(tt.flow, nil, zap.NewNop()).Visit)

			req := httptest.NewRequest(http.MethodGet, "/Promo", nil)
			req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "promo", tt.flow.gotSlug)
			assert.Equal(t, "Mozilla/5.0 (iPhone)", tt.flow.gotUA)

			if tt.wantCode == "" {
				assert.Equal(t, tt.flow.target, resp.Header.Get("Location"))
				assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
				return
			}
			body := decodeEnvelope(t, resp.Body)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, tt.wantCode, errorCode(t, body))
		})
	}
}

type stubCampaignFlow struct {
	businessflow.CampaignFlow
	createErr error
	created   *dto.CreateCampaignRequest
}

func (s *stubCampaignFlow) Create(_ context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignDTO, error) {
	s.created = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &dto.CampaignDTO{Slug: req.Slug, Name: req.Name}, nil
}

func TestCampaignHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		flowErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"slug":"promo","name":"Promo","operators":[{"operator_uuid":"f47ac10b-58cc-4372-a567-0e02b2c3d479","grade":2}]}`,
			wantStatus: fiber.StatusCreated,
		},
		{
			name:       "reserved slug rejected by validation",
			body:       `{"slug":"api","name":"Promo"}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "grade below one",
			body:       `{"slug":"promo","name":"Promo","operators":[{"operator_uuid":"f47ac10b-58cc-4372-a567-0e02b2c3d479","grade":0}]}`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "duplicate slug",
			body:       `{"slug":"promo","name":"Promo"}`,
			flowErr:    businessflow.NewBusinessError("CAMPAIGN_SLUG_EXISTS", "Campaign slug already exists", businessflow.ErrSlugAlreadyExists),
			wantStatus: fiber.StatusConflict,
			wantCode:   "CAMPAIGN_SLUG_EXISTS",
		},
		{
			name:       "duplicate operator",
			body:       `{"slug":"promo","name":"Promo"}`,
			flowErr:    businessflow.NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Operator assigned more than once", businessflow.ErrDuplicateOperator),
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "CAMPAIGN_VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{"slug":`,
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &stubCampaignFlow{createErr: tt.flowErr}
			app := fiber.New()
			app.Post("/campaigns", NewCampaignHandler(flow, nil, zap.NewNop()).Create)

			req := httptest.NewRequest(http.MethodPost, "/campaigns", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeEnvelope(t, resp.Body)
			if tt.wantCode == "" {
				assert.True(t, body.Success)
				return
			}
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, errorCode(t, body))
		})
	}
}
