package server

import (
	"scrimhub/internal/domain"
	"time"
)

type scrimResponse struct {
	ID                string     `json:"id"`
	CreatorID         string     `json:"creator_id"`
	CreatorName       string     `json:"creator_name"`
	Title             string     `json:"title"`
	Map               string     `json:"map,omitempty"`
	MinPlayersPerTeam int        `json:"min_players_per_team"`
	MaxPlayersPerTeam int        `json:"max_players_per_team"`
	Status            string     `json:"status"`
	TeamAScore        *int       `json:"team_a_score,omitempty"`
	TeamBScore        *int       `json:"team_b_score,omitempty"`
	Winner            *string    `json:"winner,omitempty"`
	TrackerSessionID  string     `json:"tracker_session_id,omitempty"`
	IsRanked          bool       `json:"is_ranked"`
	RankedProcessedAt *time.Time `json:"ranked_processed_at,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type playerResponse struct {
	AccountID   string     `json:"account_id"`
	DisplayName string     `json:"display_name"`
	IsReady     bool       `json:"is_ready"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	Team        *string    `json:"team,omitempty"`
	VotedReroll bool       `json:"voted_reroll"`
	JoinedAt    time.Time  `json:"joined_at"`
}

type submissionResponse struct {
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name"`
	TeamAScore  int       `json:"team_a_score"`
	TeamBScore  int       `json:"team_b_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type scrimDetailResponse struct {
	Scrim       scrimResponse        `json:"scrim"`
	Players     []playerResponse     `json:"players"`
	Submissions []submissionResponse `json:"submissions"`
}

type historyResponse struct {
	NameKey       string    `json:"name_key"`
	ScrimID       string    `json:"scrim_id"`
	EloBefore     int       `json:"elo_before"`
	EloAfter      int       `json:"elo_after"`
	EloChange     int       `json:"elo_change"`
	Result        string    `json:"result"`
	Team          string    `json:"team"`
	TeamScore     int       `json:"team_score"`
	OpponentScore int       `json:"opponent_score"`
	Kills         int       `json:"kills"`
	Deaths        int       `json:"deaths"`
	CreatedAt     time.Time `json:"created_at"`
}

type leaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"display_name"`
	Elo         int    `json:"elo"`
	GamesPlayed int    `json:"games_played"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
}

type gameNameResponse struct {
	AccountID string    `json:"account_id"`
	GameName  string    `json:"game_name"`
	CreatedAt time.Time `json:"created_at"`
}

func toScrimResponse(s *domain.Scrim) scrimResponse {
	resp := scrimResponse{
		ID:                s.ID,
		CreatorID:         s.CreatorID,
		CreatorName:       s.CreatorName,
		Title:             s.Title,
		Map:               s.Map,
		MinPlayersPerTeam: s.MinPlayersPerTeam,
		MaxPlayersPerTeam: s.MaxPlayersPerTeam,
		Status:            string(s.Status),
		TeamAScore:        s.TeamAScore,
		TeamBScore:        s.TeamBScore,
		TrackerSessionID:  s.TrackerSessionID,
		IsRanked:          s.IsRanked,
		RankedProcessedAt: s.RankedProcessedAt,
		ExpiresAt:         s.ExpiresAt,
		StartedAt:         s.StartedAt,
		FinishedAt:        s.FinishedAt,
		FinalizedAt:       s.FinalizedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.Winner != nil {
		winner := string(*s.Winner)
		resp.Winner = &winner
	}
	return resp
}

func toDetailResponse(d *domain.ScrimDetail) scrimDetailResponse {
	resp := scrimDetailResponse{
		Scrim:       toScrimResponse(&d.Scrim),
		Players:     make([]playerResponse, 0, len(d.Players)),
		Submissions: make([]submissionResponse, 0, len(d.Submissions)),
	}
	for _, p := range d.Players {
		pr := playerResponse{
			AccountID:   p.AccountID,
			DisplayName: p.DisplayName,
			IsReady:     p.IsReady,
			ReadyAt:     p.ReadyAt,
			VotedReroll: p.VotedReroll,
			JoinedAt:    p.CreatedAt,
		}
		if p.Team != nil {
			team := string(*p.Team)
			pr.Team = &team
		}
		resp.Players = append(resp.Players, pr)
	}
	for _, sub := range d.Submissions {
		resp.Submissions = append(resp.Submissions, submissionResponse{
			AccountID:   sub.AccountID,
			DisplayName: sub.DisplayName,
			TeamAScore:  sub.TeamAScore,
			TeamBScore:  sub.TeamBScore,
			SubmittedAt: sub.UpdatedAt,
		})
	}
	return resp
}

func toHistoryResponses(history []domain.EloHistory) []historyResponse {
	resp := make([]historyResponse, 0, len(history))
	for _, h := range history {
		resp = append(resp, historyResponse{
			NameKey:       h.NameKey,
			ScrimID:       h.ScrimID,
			EloBefore:     h.EloBefore,
			EloAfter:      h.EloAfter,
			EloChange:     h.EloChange,
			Result:        string(h.Result),
			Team:          string(h.Team),
			TeamScore:     h.TeamScore,
			OpponentScore: h.OpponentScore,
			Kills:         h.Kills,
			Deaths:        h.Deaths,
			CreatedAt:     h.CreatedAt,
		})
	}
	return resp
}
