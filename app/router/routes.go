// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/app/handlers"
	"github.com/amirphl/counter-clean-arch/app/middleware"
	"github.com/amirphl/counter-clean-arch/config"
	"github.com/amirphl/counter-clean-arch/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/api/v1/health"

// HealthChecker reports whether the active storage backend is reachable
type HealthChecker func(ctx context.Context) error

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	counterHandler handlers.CounterHandlerInterface
	health         HealthChecker
	logger         *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	counterHandler handlers.CounterHandlerInterface,
	health HealthChecker,
	log *zap.Logger,
) Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &FiberRouter{
		cfg:            cfg,
		counterHandler: counterHandler,
		health:         health,
		logger:         log,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Counter API",
		ServerHeader: "counter",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	// Default counter
	counter := api.Group("/counter")
	counter.Get("/", r.counterHandler.Get)
	counter.Post("/increment", r.counterHandler.Increment)
	counter.Post("/decrement", r.counterHandler.Decrement)
	counter.Post("/reset", r.counterHandler.Reset)

	// Named counters
	counters := api.Group("/counters")
	counters.Get("/:id", r.counterHandler.Get)
	counters.Post("/:id/increment", r.counterHandler.Increment)
	counters.Post("/:id/decrement", r.counterHandler.Decrement)
	counters.Post("/:id/reset", r.counterHandler.Reset)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// Recovery middleware with structured panic logging
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.String("request_id", requestid.FromContext(c)),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))

	r.app.Use(middleware.Metrics())

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         r.cfg.Security.XFrameOptions,
		HSTSMaxAge:            r.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy: r.cfg.Security.CSPPolicy,
		ReferrerPolicy:        r.cfg.Security.ReferrerPolicy,
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           orInt(r.cfg.Security.CORSMaxAge, utils.CORSMaxAge),
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), r.cfg.Metrics.Path)
			},
		}))
	}

	// Access log lines go through zap so they share the application's sinks
	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     "${status} ${method} ${path} ip=${ip} latency=${latency} bytes_in=${bytesReceived} bytes_out=${bytesSent} request_id=${respHeader:X-Request-ID}\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     zap.NewStdLog(r.logger.Named("access")).Writer(),
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
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

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	data := fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   r.cfg.Deployment.Version,
		"service":   "counter-api",
		"storage":   r.cfg.Storage.Driver,
	}

	if r.health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.health(ctx); err != nil {
			r.logger.Warn("health check failed", zap.Error(err))
			data["status"] = "degraded"
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
				Success: false,
				Message: "Storage backend is unavailable",
				Data:    data,
				Error:   dto.ErrorDetail{Code: "STORAGE_UNAVAILABLE"},
			})
		}
	}

	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data:    data,
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

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	requestID := requestid.FromContext(c)
	r.logger.Error("request failed",
		zap.Int("status", code),
		zap.String("request_id", requestID),
		zap.String("path", c.Path()),
		zap.Error(err))

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
