package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"scrimhub/internal/domain"
	"scrimhub/internal/middleware"
	"scrimhub/internal/service"

	"github.com/rs/zerolog"
)

// ScrimServer exposes the scrim lifecycle over JSON. Caller identity comes
// from the X-Account-ID / X-Account-Name headers the site's auth proxy
// injects, lifted into the context by middleware.Identity.
type ScrimServer struct {
	scrims *service.ScrimService
	rating *service.RatingService
	logger zerolog.Logger
}

func NewScrimServer(scrims *service.ScrimService, rating *service.RatingService, logger zerolog.Logger) *ScrimServer {
	return &ScrimServer{
		scrims: scrims,
		rating: rating,
		logger: logger,
	}
}

func (s *ScrimServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scrims", s.handleCreate)
	mux.HandleFunc("GET /api/scrims", s.handleListActive)
	mux.HandleFunc("GET /api/scrims/{id}", s.handleGet)
	mux.HandleFunc("POST /api/scrims/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/scrims/{id}/leave", s.handleLeave)
	mux.HandleFunc("POST /api/scrims/{id}/ready", s.handleReady)
	mux.HandleFunc("POST /api/scrims/{id}/end", s.handleEnd)
	mux.HandleFunc("POST /api/scrims/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/scrims/{id}/reroll", s.handleReroll)
	mux.HandleFunc("POST /api/scrims/{id}/score", s.handleScore)
	mux.HandleFunc("POST /api/scrims/{id}/session", s.handleSession)
	mux.HandleFunc("POST /api/scrims/{id}/process", s.handleProcess)
	mux.HandleFunc("GET /api/scrims/{id}/history", s.handleScrimHistory)
	mux.HandleFunc("POST /api/admin/scrims/{id}/recalculate", s.handleRecalculate)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/game-names", s.handleClaimGameName)
}

type createScrimRequest struct {
	Title             string `json:"title"`
	Map               string `json:"map"`
	MinPlayersPerTeam int    `json:"min_players_per_team"`
	MaxPlayersPerTeam int    `json:"max_players_per_team"`
	Ranked            *bool  `json:"ranked"`
}

func (s *ScrimServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	accountID, accountName, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req createScrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	scrim, err := s.scrims.Create(r.Context(), accountID, accountName, service.CreateOptions{
		Title:             req.Title,
		Map:               req.Map,
		MinPlayersPerTeam: req.MinPlayersPerTeam,
		MaxPlayersPerTeam: req.MaxPlayersPerTeam,
		Ranked:            req.Ranked,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toScrimResponse(scrim))
}

func (s *ScrimServer) handleListActive(w http.ResponseWriter, r *http.Request) {
	scrims, err := s.scrims.ListActive(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := make([]scrimResponse, 0, len(scrims))
	for i := range scrims {
		resp = append(resp, toScrimResponse(&scrims[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *ScrimServer) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := s.scrims.GetDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *ScrimServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	accountID, accountName, ok := s.caller(w, r)
	if !ok {
		return
	}

	detail, err := s.scrims.Join(r.Context(), r.PathValue("id"), accountID, accountName)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *ScrimServer) handleLeave(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	if err := s.scrims.Leave(r.Context(), r.PathValue("id"), accountID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ScrimServer) handleReady(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	detail, err := s.scrims.ToggleReady(r.Context(), r.PathValue("id"), accountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *ScrimServer) handleEnd(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	scrim, err := s.scrims.EndGame(r.Context(), r.PathValue("id"), accountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toScrimResponse(scrim))
}

func (s *ScrimServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	scrim, err := s.scrims.Cancel(r.Context(), r.PathValue("id"), accountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toScrimResponse(scrim))
}

func (s *ScrimServer) handleReroll(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	detail, err := s.scrims.VoteReroll(r.Context(), r.PathValue("id"), accountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

type submitScoreRequest struct {
	TeamAScore int `json:"team_a_score"`
	TeamBScore int `json:"team_b_score"`
}

func (s *ScrimServer) handleScore(w http.ResponseWriter, r *http.Request) {
	accountID, accountName, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamAScore < 0 || req.TeamBScore < 0 {
		s.writeError(w, r, http.StatusBadRequest, "scores must be non-negative")
		return
	}

	detail, err := s.scrims.SubmitScore(r.Context(), r.PathValue("id"), accountID, accountName, req.TeamAScore, req.TeamBScore)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

type setSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *ScrimServer) handleSession(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req setSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	scrim, err := s.scrims.SetTrackerSession(r.Context(), r.PathValue("id"), accountID, req.SessionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toScrimResponse(scrim))
}

func (s *ScrimServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.caller(w, r); !ok {
		return
	}

	scrimID := r.PathValue("id")
	if err := s.rating.ProcessRankedScrim(r.Context(), scrimID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	history, err := s.rating.HistoryForScrim(r.Context(), scrimID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toHistoryResponses(history))
}

func (s *ScrimServer) handleScrimHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.rating.HistoryForScrim(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toHistoryResponses(history))
}

func (s *ScrimServer) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	scrimID := r.PathValue("id")
	if err := s.rating.AdminRecalculate(r.Context(), scrimID, accountID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	history, err := s.rating.HistoryForScrim(r.Context(), scrimID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toHistoryResponses(history))
}

func (s *ScrimServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.rating.Leaderboard(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := make([]leaderboardEntry, 0, len(entries))
	for i, e := range entries {
		resp = append(resp, leaderboardEntry{
			Rank:        i + 1,
			DisplayName: e.DisplayName,
			Elo:         e.Elo,
			GamesPlayed: e.GamesPlayed,
			Wins:        e.Wins,
			Losses:      e.Losses,
			Draws:       e.Draws,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type claimGameNameRequest struct {
	GameName string `json:"game_name"`
}

func (s *ScrimServer) handleClaimGameName(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req claimGameNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	claimed, err := s.scrims.ClaimGameName(r.Context(), accountID, req.GameName)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, gameNameResponse{
		AccountID: claimed.AccountID,
		GameName:  claimed.GameName,
		CreatedAt: claimed.CreatedAt,
	})
}

func (s *ScrimServer) caller(w http.ResponseWriter, r *http.Request) (accountID, accountName string, ok bool) {
	accountID = middleware.GetAccountID(r.Context())
	if accountID == "" {
		s.writeError(w, r, http.StatusUnauthorized, "missing account identity")
		return "", "", false
	}
	accountName = middleware.GetAccountName(r.Context())
	if accountName == "" {
		accountName = accountID
	}
	return accountID, accountName, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *ScrimServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *ScrimServer) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.logger.Debug().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Int("status", status).
		Str("error", msg).
		Msg("request rejected")
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *ScrimServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrNoMatchedPlayers):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrScrimFull),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTelemetryUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("request failed")
	}
	s.writeError(w, r, status, err.Error())
}
