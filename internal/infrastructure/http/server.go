package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/Markwood23/plaen-sub000/internal/adapter/handler/http"
	"github.com/Markwood23/plaen-sub000/internal/config"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/database"
	"github.com/Markwood23/plaen-sub000/internal/middleware/auth"
	"github.com/Markwood23/plaen-sub000/internal/usecase"
)

// Server hosts the checkout HTTP API.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	echo    *echo.Echo
	manager *usecase.SessionManager
	repos   *database.Repositories
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(cfg *config.Config, logger *zap.Logger, manager *usecase.SessionManager, repos *database.Repositories) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:  cfg,
		logger:  logger,
		echo:    e,
		manager: manager,
		repos:   repos,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "checkout",
		})
	})

	checkoutHandler := handlers.NewCheckoutHandler(s.manager, s.logger)
	receiptsHandler := handlers.NewReceiptsHandler(s.repos.Receipt, s.logger)

	api := s.echo.Group("/api/v1")
	if s.config.Service.JWTSecret != "" {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret: s.config.Service.JWTSecret,
			Logger: s.logger,
		}))
	}

	api.POST("/checkout/sessions", checkoutHandler.CreateSession)
	api.GET("/checkout/sessions/:id", checkoutHandler.GetSession)
	api.POST("/checkout/sessions/:id/method", checkoutHandler.SelectMethod)
	api.POST("/checkout/sessions/:id/amount", checkoutHandler.SetAmount)
	api.POST("/checkout/sessions/:id/initiate", checkoutHandler.InitiatePayment)
	api.POST("/checkout/sessions/:id/retry", checkoutHandler.RetryPayment)
	api.POST("/checkout/sessions/:id/reset", checkoutHandler.ResetPayment)
	api.DELETE("/checkout/sessions/:id", checkoutHandler.DestroySession)

	api.GET("/invoices/:invoice_id/receipts", receiptsHandler.ListByInvoice)
	api.GET("/receipts/:transaction_id", receiptsHandler.GetByTransaction)
}
