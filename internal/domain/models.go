package domain

import (
	"time"
)

type ScrimStatus string

const (
	StatusWaiting    ScrimStatus = "waiting"
	StatusReadyCheck ScrimStatus = "ready_check" // reserved, treated as waiting
	StatusInProgress ScrimStatus = "in_progress"
	StatusScoring    ScrimStatus = "scoring"
	StatusFinalized  ScrimStatus = "finalized"
	StatusCancelled  ScrimStatus = "cancelled"
	StatusExpired    ScrimStatus = "expired"
)

type Team string

const (
	TeamA Team = "team_a"
	TeamB Team = "team_b"
)

type Winner string

const (
	WinnerTeamA Winner = "team_a"
	WinnerTeamB Winner = "team_b"
	WinnerDraw  Winner = "draw"
)

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

type Scrim struct {
	ID                string
	CreatorID         string
	CreatorName       string
	Title             string
	Map               string
	MinPlayersPerTeam int
	MaxPlayersPerTeam int
	Status            ScrimStatus
	TeamAScore        *int
	TeamBScore        *int
	Winner            *Winner
	TrackerSessionID  string // "+"-delimited for multi-session matches
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
	Team        *Team // nil until team assignment
	VotedReroll bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ScoreSubmission struct {
	ScrimID     string
	AccountID   string
	DisplayName string
	TeamAScore  int
	TeamBScore  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserGameName links an account to the in-game name telemetry records for
// that player. The lowercased name is globally unique, first claim wins.
type UserGameName struct {
	AccountID string
	GameName  string
	NameKey   string // lowercased GameName
	CreatedAt time.Time
}

// PlayerElo is keyed by lowercased in-game name, not account id, because
// telemetry only knows players by name.
type PlayerElo struct {
	NameKey     string
	DisplayName string
	Elo         int
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EloHistory struct {
	ID            string // nanoid
	NameKey       string
	ScrimID       string
	EloBefore     int
	EloAfter      int
	EloChange     int
	Result        MatchResult
	Team          Team
	TeamScore     int
	OpponentScore int
	Kills         int
	Deaths        int
	KFactor       int
	CreatedAt     time.Time
}

// ScrimDetail is the poll-read projection: the scrim plus its children.
type ScrimDetail struct {
	Scrim       Scrim
	Players     []ScrimPlayer
	Submissions []ScoreSubmission
}
