package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"loginsentry/api/handler"
	apiMiddleware "loginsentry/api/middleware"
	"loginsentry/api/routes"
	"loginsentry/config"
	"loginsentry/internal/repository"
	"loginsentry/internal/service"
	"loginsentry/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	db := config.ConnectionDb()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	rdb, err := config.ConnectionRedis()
	if err != nil {
		logger.WithError(err).Fatal("redis connection failed")
	}

	accessSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(accessSecret) == 0 {
		logger.Fatal("JWT_SECRET is required")
	}
	accessManager := utils.JWTManager{
		Secret:         accessSecret,
		Issuer:         os.Getenv("JWT_ISSUER"),
		AccessTokenTTL: 15 * time.Minute,
	}

	attemptRepo := repository.NewLoginAttemptRepository(db)
	deviceRepo := repository.NewTrustedDeviceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewSecurityEventRepository(db)

	tokens := service.NewRedisEphemeralStore(rdb, os.Getenv("REDIS_NAMESPACE"))
	geo := service.NewHTTPGeoProvider(os.Getenv("GEOIP_BASE_URL"))
	notifier := service.NewResendNotifier(os.Getenv("RESEND_API_KEY"), os.Getenv("EMAIL_FROM"))
	profiler := service.NewUserAgentProfiler()
	clock := service.RealClock{}

	analyzer := service.NewRiskAnalyzer(attemptRepo, tokens, geo, clock)
	guard := service.NewLoginGuard(
		analyzer,
		attemptRepo,
		deviceRepo,
		sessionRepo,
		eventRepo,
		tokens,
		notifier,
		profiler,
		geo,
		clock,
		service.GuardConfig{
			ConfirmThreshold:   60,
			AutoBlockThreshold: 90,
			ConfirmTokenTTL:    time.Hour,
			ResetTokenTTL:      time.Hour,
			DeviceTrustTTL:     90 * 24 * time.Hour,
			AppBaseURL:         os.Getenv("APP_BASE_URL"),
		},
	)

	riskHandler := handler.NewRiskHandler(guard, validate)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := sessionRepo.CleanupExpired(context.Background(), clock.Now()); err != nil {
				logger.WithError(err).Warn("session cleanup failed")
			}
		}
	}()

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, riskHandler, authMiddleware)
	router.RegisterRoutes()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", addr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
