package service

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrDeviceNotFound        = errors.New("device not found")
)
