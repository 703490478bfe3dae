// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/amirphl/rotalink/app/dto"
	"github.com/amirphl/rotalink/app/handlers"
	"github.com/amirphl/rotalink/app/middleware"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/api/v1/health"

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Redirect handlers.RedirectHandlerInterface
	Admin    handlers.AdminHandlerInterface
	Operator handlers.OperatorHandlerInterface
	Campaign handlers.CampaignHandlerInterface
	Report   handlers.ReportHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	auth     *middleware.AuthMiddleware
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, auth *middleware.AuthMiddleware, checks map[string]HealthCheck, logger *zap.Logger) Router {
	fiberCfg := fiber.Config{
		AppName:      "rotalink",
		ServerHeader: "rotalink",
		ErrorHandler: errorHandler(logger),
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	}
	if len(cfg.Server.TrustedProxies) > 0 {
		fiberCfg.TrustProxy = true
		fiberCfg.TrustProxyConfig = fiber.TrustProxyConfig{Proxies: cfg.Server.TrustedProxies}
		fiberCfg.ProxyHeader = cfg.Server.ProxyHeader
	}

	return &FiberRouter{
		app:      fiber.New(fiberCfg),
		cfg:      cfg,
		handlers: h,
		auth:     auth,
		checks:   checks,
		logger:   logger,
	}
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Stricter rate limiting on login
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))
	auth.Post("/login", r.handlers.Admin.Login)

	// Management API
	requireAdmin := r.auth.AdminAuthenticate()

	operators := api.Group("/operators", requireAdmin)
	operators.Post("/", r.handlers.Operator.Create)
	operators.Get("/", r.handlers.Operator.List)
	operators.Get("/options", r.handlers.Operator.Options)
	operators.Get("/:uuid", r.handlers.Operator.Get)
	operators.Patch("/:uuid", r.handlers.Operator.Update)
	operators.Delete("/:uuid", r.handlers.Operator.Delete)

	campaigns := api.Group("/campaigns", requireAdmin)
	campaigns.Post("/", r.handlers.Campaign.Create)
	campaigns.Get("/", r.handlers.Campaign.List)
	campaigns.Get("/:uuid", r.handlers.Campaign.Get)
	campaigns.Patch("/:uuid", r.handlers.Campaign.Update)
	campaigns.Delete("/:uuid", r.handlers.Campaign.Delete)
	campaigns.Get("/:uuid/visitors", r.handlers.Report.ListVisitors)
	campaigns.Get("/:uuid/visitors/export", r.handlers.Report.ExportVisitors)
	campaigns.Get("/:uuid/chart", r.handlers.Report.CampaignChart)

	dashboard := api.Group("/dashboard", requireAdmin)
	dashboard.Get("/", r.handlers.Report.Dashboard)
	dashboard.Get("/productive-operators", r.handlers.Report.ProductiveOperators)

	// Public campaign link, registered last so fixed paths win
	r.app.Get("/:slug", r.handlers.Redirect.Visit)

	// Not found handler
	r.app.Use(r.notFoundHandler)
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: generateRequestID,
	}))

	// Recovery middleware with structured panic logging
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic",
				zap.String("request_id", requestid.FromContext(c)),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()))
		},
	}))

	r.app.Use(middleware.Metrics())

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(middleware.RequestLogger(r.logger, healthPath, r.cfg.Metrics.Path))
	}

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "no-referrer",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{fiber.HeaderXRequestID, fiber.HeaderContentDisposition},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Per IP rate limiting for every route except probes
	r.app.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("starting server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck runs every dependency check and reports 503 when one fails
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	overall := "ok"
	deps := make(fiber.Map, len(r.checks))
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			overall = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: "Service health",
		Data: fiber.Map{
			"status":       overall,
			"timestamp":    utils.UTCNow().Unix(),
			"version":      r.cfg.Deployment.Version,
			"service":      "rotalink",
			"dependencies": deps,
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// errorHandler renders errors escaping the handlers in the API envelope
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An internal server error occurred"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error", zap.Int("status", code), zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: "INTERNAL_ERROR",
				Details: fiber.Map{
					"timestamp":  utils.UTCNow().Unix(),
					"request_id": requestid.FromContext(c),
				},
			},
		})
	}
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
