package constants

import "time"

const (
	// ScrimTTL is how long a waiting scrim stays joinable before the
	// reaper expires it.
	ScrimTTL = 20 * time.Minute

	DefaultMinPlayersPerTeam = 1
	DefaultMaxPlayersPerTeam = 5
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SweepInterval    = 30 * time.Second
	SweepWorkers     = 4
	LeaderboardLimit = 50
	ActiveScrimLimit = 100
)
