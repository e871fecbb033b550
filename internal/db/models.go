package db

import (
	"time"
)

type Scrim struct {
	ID                string
	CreatorID         string
	CreatorName       string
	Title             string
	Map               string
	MinPlayersPerTeam int64
	MaxPlayersPerTeam int64
	Status            string
	TeamAScore        *int64
	TeamBScore        *int64
	Winner            *string
	TrackerSessionID  string
	IsRanked          bool
	RankedProcessedAt *time.Time
	ExpiresAt         time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	FinalizedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ScrimPlayer struct {
	ScrimID     string
	AccountID   string
	DisplayName string
	IsReady     bool
	ReadyAt     *time.Time
	Team        *string
	VotedReroll bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ScrimScoreSubmission struct {
	ScrimID     string
	AccountID   string
	DisplayName string
	TeamAScore  int64
	TeamBScore  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserGameName struct {
	NameKey   string
	GameName  string
	AccountID string
	CreatedAt time.Time
}

type PlayerElo struct {
	NameKey     string
	DisplayName string
	Elo         int64
	GamesPlayed int64
	Wins        int64
	Losses      int64
	Draws       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EloHistory struct {
	ID            string
	NameKey       string
	ScrimID       string
	EloBefore     int64
	EloAfter      int64
	EloChange     int64
	Result        string
	Team          string
	TeamScore     int64
	OpponentScore int64
	Kills         int64
	Deaths        int64
	KFactor       int64
	CreatedAt     time.Time
}
