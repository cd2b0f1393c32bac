package services

import "errors"

var (
	// ErrRecordNotFound ends a session's heartbeat: the activity record is gone
	ErrRecordNotFound = errors.New("activity record not found")

	ErrHeartbeatActive      = errors.New("heartbeat already running for user")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrProfileIncomplete    = errors.New("profile incomplete")
	ErrInvalidState         = errors.New("invalid enrollment state")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrValidationFailed     = errors.New("validation failed")
)
