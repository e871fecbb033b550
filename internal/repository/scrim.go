package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"scrimhub/internal/db"
	"scrimhub/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type ScrimRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewScrimRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *ScrimRepository {
	return &ScrimRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Create inserts a waiting scrim and enrolls the creator in one transaction.
func (r *ScrimRepository) Create(ctx context.Context, scrim *domain.Scrim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	err = qtx.CreateScrim(ctx, db.CreateScrimParams{
		ID:                scrim.ID,
		CreatorID:         scrim.CreatorID,
		CreatorName:       scrim.CreatorName,
		Title:             scrim.Title,
		Map:               scrim.Map,
		MinPlayersPerTeam: int64(scrim.MinPlayersPerTeam),
		MaxPlayersPerTeam: int64(scrim.MaxPlayersPerTeam),
		Status:            string(scrim.Status),
		IsRanked:          scrim.IsRanked,
		ExpiresAt:         scrim.ExpiresAt,
		CreatedAt:         scrim.CreatedAt,
		UpdatedAt:         scrim.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert scrim: %w", err)
	}

	err = qtx.UpsertScrimPlayer(ctx, db.UpsertScrimPlayerParams{
		ScrimID:     scrim.ID,
		AccountID:   scrim.CreatorID,
		DisplayName: scrim.CreatorName,
		CreatedAt:   scrim.CreatedAt,
		UpdatedAt:   scrim.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enroll creator: %w", err)
	}

	return tx.Commit()
}

func (r *ScrimRepository) Get(ctx context.Context, id string) (*domain.Scrim, error) {
	scrim, err := r.queries.GetScrim(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := toDomainScrim(scrim)
	return &s, nil
}

func (r *ScrimRepository) GetDetail(ctx context.Context, id string) (*domain.ScrimDetail, error) {
	scrim, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}

	subs, err := r.queries.ListScoreSubmissions(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.ScrimDetail{Scrim: *scrim, Players: players}
	for _, s := range subs {
		detail.Submissions = append(detail.Submissions, toDomainSubmission(s))
	}
	return detail, nil
}

func (r *ScrimRepository) ListByStatus(ctx context.Context, status domain.ScrimStatus, limit int) ([]domain.Scrim, error) {
	rows, err := r.queries.ListScrimsByStatus(ctx, db.ListScrimsByStatusParams{
		Status: string(status),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Scrim, len(rows))
	for i, row := range rows {
		result[i] = toDomainScrim(row)
	}
	return result, nil
}

func (r *ScrimRepository) ListUnprocessedRanked(ctx context.Context, limit int) ([]domain.Scrim, error) {
	rows, err := r.queries.ListUnprocessedRanked(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]domain.Scrim, len(rows))
	for i, row := range rows {
		result[i] = toDomainScrim(row)
	}
	return result, nil
}

func (r *ScrimRepository) AddPlayer(ctx context.Context, scrimID, accountID, displayName string) error {
	now := time.Now()
	return r.queries.UpsertScrimPlayer(ctx, db.UpsertScrimPlayerParams{
		ScrimID:     scrimID,
		AccountID:   accountID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (r *ScrimRepository) RemovePlayer(ctx context.Context, scrimID, accountID string) error {
	return r.queries.DeleteScrimPlayer(ctx, db.DeleteScrimPlayerParams{
		ScrimID:   scrimID,
		AccountID: accountID,
	})
}

func (r *ScrimRepository) GetPlayer(ctx context.Context, scrimID, accountID string) (*domain.ScrimPlayer, error) {
	row, err := r.queries.GetScrimPlayer(ctx, db.GetScrimPlayerParams{
		ScrimID:   scrimID,
		AccountID: accountID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := toDomainPlayer(row)
	return &p, nil
}

func (r *ScrimRepository) ListPlayers(ctx context.Context, scrimID string) ([]domain.ScrimPlayer, error) {
	rows, err := r.queries.ListScrimPlayers(ctx, scrimID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ScrimPlayer, len(rows))
	for i, row := range rows {
		result[i] = toDomainPlayer(row)
	}
	return result, nil
}

func (r *ScrimRepository) CountPlayers(ctx context.Context, scrimID string) (int, error) {
	count, err := r.queries.CountScrimPlayers(ctx, scrimID)
	return int(count), err
}

func (r *ScrimRepository) SetReady(ctx context.Context, scrimID, accountID string, ready bool) error {
	now := time.Now()
	var readyAt *time.Time
	if ready {
		readyAt = &now
	}
	return r.queries.SetPlayerReady(ctx, db.SetPlayerReadyParams{
		IsReady:   ready,
		ReadyAt:   readyAt,
		UpdatedAt: now,
		ScrimID:   scrimID,
		AccountID: accountID,
	})
}

// StartWithTeams performs the guarded waiting -> in_progress transition and
// persists the team split in the same transaction. Returns false when another
// caller already won the transition.
func (r *ScrimRepository) StartWithTeams(ctx context.Context, scrimID string, assignments map[string]domain.Team) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	rows, err := qtx.StartScrim(ctx, db.StartScrimParams{
		StartedAt: now,
		UpdatedAt: now,
		ID:        scrimID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to start scrim: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	for accountID, team := range assignments {
		err := qtx.SetPlayerTeam(ctx, db.SetPlayerTeamParams{
			Team:      string(team),
			UpdatedAt: now,
			ScrimID:   scrimID,
			AccountID: accountID,
		})
		if err != nil {
			return false, fmt.Errorf("failed to assign team for %s: %w", accountID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ExecuteReroll re-checks the phase and the vote threshold inside the
// transaction, applies the new split from assign and clears every reroll
// vote. Returns false when the scrim already left in_progress or the
// threshold is no longer met (a concurrent vote already rerolled).
func (r *ScrimRepository) ExecuteReroll(ctx context.Context, scrimID string, assign func(players []domain.ScrimPlayer) map[string]domain.Team) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	scrim, err := qtx.GetScrim(ctx, scrimID)
	if err != nil {
		return false, err
	}
	if scrim.Status != string(domain.StatusInProgress) {
		return false, nil
	}

	votes, err := qtx.CountRerollVotes(ctx, scrimID)
	if err != nil {
		return false, err
	}
	assigned, err := qtx.CountAssignedPlayers(ctx, scrimID)
	if err != nil {
		return false, err
	}
	if assigned == 0 || votes*2 <= assigned {
		return false, nil
	}

	rows, err := qtx.ListScrimPlayers(ctx, scrimID)
	if err != nil {
		return false, err
	}
	var pool []domain.ScrimPlayer
	for _, row := range rows {
		if row.Team != nil {
			pool = append(pool, toDomainPlayer(row))
		}
	}

	for accountID, team := range assign(pool) {
		err := qtx.SetPlayerTeam(ctx, db.SetPlayerTeamParams{
			Team:      string(team),
			UpdatedAt: now,
			ScrimID:   scrimID,
			AccountID: accountID,
		})
		if err != nil {
			return false, fmt.Errorf("failed to reassign team for %s: %w", accountID, err)
		}
	}

	err = qtx.ClearRerollVotes(ctx, db.ClearRerollVotesParams{
		UpdatedAt: now,
		ScrimID:   scrimID,
	})
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ScrimRepository) SetRerollVote(ctx context.Context, scrimID, accountID string, vote bool) error {
	return r.queries.SetPlayerRerollVote(ctx, db.SetPlayerRerollVoteParams{
		VotedReroll: vote,
		UpdatedAt:   time.Now(),
		ScrimID:     scrimID,
		AccountID:   accountID,
	})
}

func (r *ScrimRepository) Finish(ctx context.Context, scrimID string) (bool, error) {
	now := time.Now()
	rows, err := r.queries.FinishScrim(ctx, db.FinishScrimParams{
		FinishedAt: now,
		UpdatedAt:  now,
		ID:         scrimID,
	})
	return rows > 0, err
}

func (r *ScrimRepository) Cancel(ctx context.Context, scrimID string) (bool, error) {
	rows, err := r.queries.CancelScrim(ctx, db.CancelScrimParams{
		UpdatedAt: time.Now(),
		ID:        scrimID,
	})
	return rows > 0, err
}

// ExpireStale sweeps every overdue waiting scrim to expired in one
// conditional bulk update.
func (r *ScrimRepository) ExpireStale(ctx context.Context) (int, error) {
	now := time.Now()
	rows, err := r.queries.ExpireStaleScrims(ctx, db.ExpireStaleScrimsParams{
		Now:       now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		r.logger.Info().Int64("count", rows).Msg("expired stale scrims")
	}
	return int(rows), nil
}

func (r *ScrimRepository) SetTrackerSession(ctx context.Context, scrimID, sessionID string) error {
	return r.queries.SetTrackerSession(ctx, db.SetTrackerSessionParams{
		TrackerSessionID: sessionID,
		UpdatedAt:        time.Now(),
		ID:               scrimID,
	})
}

// SubmitScore upserts the submission and finalizes the scrim in the same
// transaction once two submissions agree exactly on both scores.
func (r *ScrimRepository) SubmitScore(ctx context.Context, sub *domain.ScoreSubmission) (finalized bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	err = qtx.UpsertScoreSubmission(ctx, db.UpsertScoreSubmissionParams{
		ScrimID:     sub.ScrimID,
		AccountID:   sub.AccountID,
		DisplayName: sub.DisplayName,
		TeamAScore:  int64(sub.TeamAScore),
		TeamBScore:  int64(sub.TeamBScore),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert score submission: %w", err)
	}

	subs, err := qtx.ListScoreSubmissions(ctx, sub.ScrimID)
	if err != nil {
		return false, err
	}

	agreeA, agreeB, agreed := findConsensus(subs)
	if !agreed {
		return false, tx.Commit()
	}

	winner := domain.WinnerDraw
	switch {
	case agreeA > agreeB:
		winner = domain.WinnerTeamA
	case agreeB > agreeA:
		winner = domain.WinnerTeamB
	}

	rows, err := qtx.FinalizeScrim(ctx, db.FinalizeScrimParams{
		TeamAScore:  agreeA,
		TeamBScore:  agreeB,
		Winner:      string(winner),
		FinalizedAt: now,
		UpdatedAt:   now,
		ID:          sub.ScrimID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to finalize scrim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return rows > 0, nil
}

// findConsensus reports the first (teamA, teamB) pair submitted identically
// by at least two participants.
func findConsensus(subs []db.ScrimScoreSubmission) (int64, int64, bool) {
	type pair struct{ a, b int64 }
	seen := make(map[pair]int)
	for _, s := range subs {
		p := pair{s.TeamAScore, s.TeamBScore}
		seen[p]++
		if seen[p] >= 2 {
			return p.a, p.b, true
		}
	}
	return 0, 0, false
}

func toDomainScrim(s db.Scrim) domain.Scrim {
	scrim := domain.Scrim{
		ID:                s.ID,
		CreatorID:         s.CreatorID,
		CreatorName:       s.CreatorName,
		Title:             s.Title,
		Map:               s.Map,
		MinPlayersPerTeam: int(s.MinPlayersPerTeam),
		MaxPlayersPerTeam: int(s.MaxPlayersPerTeam),
		Status:            domain.ScrimStatus(s.Status),
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
	if s.TeamAScore != nil {
		v := int(*s.TeamAScore)
		scrim.TeamAScore = &v
	}
	if s.TeamBScore != nil {
		v := int(*s.TeamBScore)
		scrim.TeamBScore = &v
	}
	if s.Winner != nil {
		w := domain.Winner(*s.Winner)
		scrim.Winner = &w
	}
	return scrim
}

func toDomainPlayer(p db.ScrimPlayer) domain.ScrimPlayer {
	player := domain.ScrimPlayer{
		ScrimID:     p.ScrimID,
		AccountID:   p.AccountID,
		DisplayName: p.DisplayName,
		IsReady:     p.IsReady,
		ReadyAt:     p.ReadyAt,
		VotedReroll: p.VotedReroll,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Team != nil {
		t := domain.Team(*p.Team)
		player.Team = &t
	}
	return player
}

func toDomainSubmission(s db.ScrimScoreSubmission) domain.ScoreSubmission {
	return domain.ScoreSubmission{
		ScrimID:     s.ScrimID,
		AccountID:   s.AccountID,
		DisplayName: s.DisplayName,
		TeamAScore:  int(s.TeamAScore),
		TeamBScore:  int(s.TeamBScore),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
