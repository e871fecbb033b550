package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidPhase         = errors.New("operation not valid in current scrim phase")
	ErrUnauthorized         = errors.New("caller not authorized")
	ErrScrimFull            = errors.New("scrim is full")
	ErrConflict             = errors.New("conflict")
	ErrAlreadyProcessed     = errors.New("scrim rating already processed")
	ErrNoMatchedPlayers     = errors.New("no participants matched telemetry")
	ErrTelemetryUnavailable = errors.New("telemetry service unavailable")
)
