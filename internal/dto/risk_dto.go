package dto

import (
	"time"

	"loginsentry/internal/entity"
)

type EvaluateLoginRequest struct {
	UserID            string `json:"user_id" validate:"required,uuid"`
	Email             string `json:"email" validate:"required,email"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

type LoginDecisionResponse struct {
	Status     string `json:"status"`
	RiskScore  int    `json:"risk_score"`
	RiskLevel  string `json:"risk_level"`
	IsNewLogin bool   `json:"is_new_login"`
}

type FailedAttemptRequest struct {
	UserID            string `json:"user_id" validate:"omitempty,uuid"`
	Email             string `json:"email" validate:"required,email"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"omitempty"`
	Status            string `json:"status" validate:"required,oneof=failed_password failed_mfa"`
}

type ConfirmLoginResponse struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	IPAddress         string `json:"ip_address"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

type DenyLoginResponse struct {
	Status         string   `json:"status"`
	CompletedSteps []string `json:"completed_steps"`
}

type TrustedDeviceResponse struct {
	DeviceFingerprint string     `json:"device_fingerprint"`
	DeviceName        string     `json:"device_name"`
	DeviceType        string     `json:"device_type"`
	Browser           string     `json:"browser"`
	OS                string     `json:"os"`
	LastIP            string     `json:"last_ip"`
	LastCountry       string     `json:"last_country,omitempty"`
	LastCity          string     `json:"last_city,omitempty"`
	LastUsedAt        time.Time  `json:"last_used_at"`
	TrustedAt         time.Time  `json:"trusted_at"`
	TrustExpiresAt    *time.Time `json:"trust_expires_at,omitempty"`
}

func MapTrustedDevice(device entity.TrustedDevice) TrustedDeviceResponse {
	return TrustedDeviceResponse{
		DeviceFingerprint: device.DeviceFingerprint,
		DeviceName:        device.DeviceName,
		DeviceType:        device.DeviceType,
		Browser:           device.Browser,
		OS:                device.OS,
		LastIP:            device.LastIP,
		LastCountry:       device.LastCountry,
		LastCity:          device.LastCity,
		LastUsedAt:        device.LastUsedAt,
		TrustedAt:         device.TrustedAt,
		TrustExpiresAt:    device.TrustExpiresAt,
	}
}

type LoginAttemptResponse struct {
	Email         string     `json:"email"`
	IPAddress     string     `json:"ip_address"`
	Status        string     `json:"status"`
	RiskScore     int        `json:"risk_score"`
	IsNewDevice   bool       `json:"is_new_device"`
	IsNewLocation bool       `json:"is_new_location"`
	IsSuspicious  bool       `json:"is_suspicious"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	DeniedAt      *time.Time `json:"denied_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func MapLoginAttempt(attempt entity.LoginAttempt) LoginAttemptResponse {
	return LoginAttemptResponse{
		Email:         attempt.Email,
		IPAddress:     attempt.IPAddress,
		Status:        string(attempt.Status),
		RiskScore:     attempt.RiskScore,
		IsNewDevice:   attempt.IsNewDevice,
		IsNewLocation: attempt.IsNewLocation,
		IsSuspicious:  attempt.IsSuspicious,
		ConfirmedAt:   attempt.ConfirmedAt,
		DeniedAt:      attempt.DeniedAt,
		CreatedAt:     attempt.CreatedAt,
	}
}

type BlockIPRequest struct {
	IPAddress  string `json:"ip_address" validate:"required,ip"`
	TTLSeconds int    `json:"ttl_seconds" validate:"omitempty,min=60"`
}
