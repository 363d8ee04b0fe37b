package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"loginsentry/api/middleware"
	"loginsentry/internal/dto"
	"loginsentry/internal/entity"
	"loginsentry/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type RiskHandler struct {
	Guard    *service.LoginGuard
	Validate *validator.Validate
}

func NewRiskHandler(guard *service.LoginGuard, validate *validator.Validate) *RiskHandler {
	return &RiskHandler{Guard: guard, Validate: validate}
}

// EvaluateLogin is called by the credential layer after a password or
// passkey has been accepted. Client IP and User-Agent come from the
// forwarded request, not the body.
func (h *RiskHandler) EvaluateLogin(c echo.Context) error {
	var req dto.EvaluateLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}

	decision, err := h.Guard.EvaluateLogin(c.Request().Context(), service.EvaluateInput{
		UserID:            userID,
		Email:             req.Email,
		IPAddress:         c.RealIP(),
		DeviceFingerprint: req.DeviceFingerprint,
		UserAgent:         c.Request().UserAgent(),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	// A blocked response carries no signal breakdown: the caller learns
	// the verdict, not which check tripped it.
	response := dto.LoginDecisionResponse{
		Status:     string(decision.Status),
		RiskScore:  decision.RiskScore,
		RiskLevel:  string(decision.RiskLevel),
		IsNewLogin: decision.IsNewLogin,
	}
	if decision.Status == service.DecisionBlocked {
		return c.JSON(http.StatusForbidden, dto.LoginDecisionResponse{Status: string(decision.Status)})
	}
	return c.JSON(http.StatusOK, response)
}

func (h *RiskHandler) ConfirmLogin(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return writeError(c, http.StatusBadRequest, errors.New("token is required"))
	}
	result, err := h.Guard.ConfirmLogin(c.Request().Context(), token)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ConfirmLoginResponse{
		UserID:            result.UserID.String(),
		Email:             result.Email,
		IPAddress:         result.IPAddress,
		DeviceFingerprint: result.DeviceFingerprint,
	})
}

func (h *RiskHandler) DenyLogin(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return writeError(c, http.StatusBadRequest, errors.New("token is required"))
	}
	result, err := h.Guard.DenyLogin(c.Request().Context(), token)
	if err != nil {
		return writeServiceError(c, err)
	}
	steps := make([]string, 0, len(result.CompletedSteps))
	for _, step := range result.CompletedSteps {
		steps = append(steps, string(step))
	}
	return c.JSON(http.StatusOK, dto.DenyLoginResponse{
		Status:         "account_secured",
		CompletedSteps: steps,
	})
}

func (h *RiskHandler) RecordFailedAttempt(c echo.Context) error {
	var req dto.FailedAttemptRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	input := service.EvaluateInput{
		Email:             req.Email,
		IPAddress:         c.RealIP(),
		DeviceFingerprint: req.DeviceFingerprint,
		UserAgent:         c.Request().UserAgent(),
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
		}
		input.UserID = userID
	}
	if err := h.Guard.RecordFailedAttempt(c.Request().Context(), input, entity.AttemptStatus(req.Status)); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *RiskHandler) ListDevices(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	devices, err := h.Guard.ListTrustedDevices(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]dto.TrustedDeviceResponse, 0, len(devices))
	for _, device := range devices {
		response = append(response, dto.MapTrustedDevice(device))
	}
	return c.JSON(http.StatusOK, response)
}

func (h *RiskHandler) RevokeDevice(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	fingerprint := c.Param("fingerprint")
	if fingerprint == "" {
		return writeError(c, http.StatusBadRequest, errors.New("fingerprint is required"))
	}
	if err := h.Guard.RevokeTrustedDevice(c.Request().Context(), userID, fingerprint); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RiskHandler) ListAttempts(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	attempts, err := h.Guard.ListRecentAttempts(c.Request().Context(), userID, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]dto.LoginAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		response = append(response, dto.MapLoginAttempt(attempt))
	}
	return c.JSON(http.StatusOK, response)
}

func (h *RiskHandler) BlockIP(c echo.Context) error {
	var req dto.BlockIPRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.Guard.BlockIP(c.Request().Context(), req.IPAddress, ttl); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RiskHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"message": err.Error()})
}

func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDeviceNotFound):
		status = http.StatusNotFound
	}
	return writeError(c, status, err)
}
