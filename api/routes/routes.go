package routes

import (
	"time"

	"loginsentry/api/handler"
	"loginsentry/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Risk           *handler.RiskHandler
	AuthMiddleware middleware.AuthMiddleware
	EvaluateRate   *middleware.RateLimiter
	TokenRate      *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, riskHandler *handler.RiskHandler, authMiddleware middleware.AuthMiddleware) *Router {
	return &Router{
		Echo:           e,
		Risk:           riskHandler,
		AuthMiddleware: authMiddleware,
		EvaluateRate:   middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		TokenRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/auth/login/evaluate", r.Risk.EvaluateLogin, r.EvaluateRate.Middleware())
	e.POST("/auth/attempts/failed", r.Risk.RecordFailedAttempt, r.EvaluateRate.Middleware())

	// Confirmation links arrive as GETs from the email client.
	e.GET("/auth/confirm-login", r.Risk.ConfirmLogin, r.TokenRate.Middleware())
	e.GET("/auth/deny-login", r.Risk.DenyLogin, r.TokenRate.Middleware())

	e.GET("/auth/devices", r.Risk.ListDevices, r.AuthMiddleware.RequireAuth)
	e.DELETE("/auth/devices/:fingerprint", r.Risk.RevokeDevice, r.AuthMiddleware.RequireAuth)
	e.GET("/auth/attempts", r.Risk.ListAttempts, r.AuthMiddleware.RequireAuth)

	e.POST("/admin/blocklist", r.Risk.BlockIP, r.AuthMiddleware.RequireAuth, middleware.RequireRole("admin"))
}
