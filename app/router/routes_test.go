package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/app/handlers"
	"github.com/amirphl/rotalink/app/middleware"
	"github.com/amirphl/rotalink/app/services"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/amirphl/rotalink/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRouteFlow struct{ target string }

func (s stubRouteFlow) Route(context.Context, string, string, *string) (string, error) {
	return s.target, nil
}

type stubReportFlow struct{ businessflow.ReportFlow }

func (stubReportFlow) Dashboard(context.Context) (*dto.DashboardResponse, error) {
	return &dto.DashboardResponse{CampaignTotal: 2, VisitTotal: 9}, nil
}

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
			BodyLimit:    1 << 20,
		},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"*"},
			AllowedMethods:  []string{"GET", "POST"},
			GlobalRateLimit: 1000,
			AuthRateLimit:   1000,
			RateLimitWindow: time.Minute,
		},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Deployment: config.DeploymentConfig{Version: "test"},
	}
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (*fiber.App, services.TokenService) {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, "iss", "aud", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	v := handlers.NewValidator()
	logger := zap.NewNop()
	r := NewFiberRouter(testConfig(), Handlers{
		Redirect: handlers.NewRedirectHandler(stubRouteFlow{target: "https://wa.me/111"}, v, logger),
		Admin:    handlers.NewAdminHandler(nil, v, logger),
		Operator: handlers.NewOperatorHandler(nil, v, logger),
		Campaign: handlers.NewCampaignHandler(nil, v, logger),
		Report:   handlers.NewReportHandler(stubReportFlow{}, v, logger),
	}, middleware.NewAuthMiddleware(tokens), checks, logger)
	r.SetupRoutes()
	return r.GetApp(), tokens
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]HealthCheck{"database": func(context.Context) error { return nil }},
			wantStatus: fiber.StatusOK,
		},
		{
			name: "cache down",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"cache":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: fiber.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestRouter(t, tt.checks)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, healthPath, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRouter_Routes(t *testing.T) {
	app, tokens := newTestRouter(t, nil)
	token, _, err := tokens.GenerateAdminToken(1)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		auth       string
		wantStatus int
	}{
		{"campaign link redirects", "/spring-sale", "", fiber.StatusFound},
		{"management requires token", "/api/v1/dashboard", "", fiber.StatusUnauthorized},
		{"malformed authorization", "/api/v1/dashboard", "Token abc", fiber.StatusUnauthorized},
		{"invalid token", "/api/v1/dashboard", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"dashboard with token", "/api/v1/dashboard", "Bearer " + token, fiber.StatusOK},
		{"metrics exposed", "/metrics", "", fiber.StatusOK},
		{"unknown nested path", "/api/v1/nope/deeper", "", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.auth)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
		})
	}
}
