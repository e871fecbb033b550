package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"scrimhub/internal/db"
	"scrimhub/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type EloRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewEloRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *EloRepository {
	return &EloRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// GetOrSeed returns the stored rating for a name key, or a fresh unsaved
// record at the seed rating when the player has never been rated.
func (r *EloRepository) GetOrSeed(ctx context.Context, nameKey, displayName string, seed int) (*domain.PlayerElo, error) {
	row, err := r.queries.GetPlayerElo(ctx, nameKey)
	if errors.Is(err, sql.ErrNoRows) {
		now := time.Now()
		return &domain.PlayerElo{
			NameKey:     nameKey,
			DisplayName: displayName,
			Elo:         seed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.PlayerElo{
		NameKey:     row.NameKey,
		DisplayName: row.DisplayName,
		Elo:         int(row.Elo),
		GamesPlayed: int(row.GamesPlayed),
		Wins:        int(row.Wins),
		Losses:      int(row.Losses),
		Draws:       int(row.Draws),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// ApplyRatings persists one scrim's rating outcome atomically: the
// idempotency marker, every history row and every player rating update
// commit or roll back together. Returns ErrAlreadyProcessed when another
// caller got there first.
func (r *EloRepository) ApplyRatings(ctx context.Context, scrimID string, histories []domain.EloHistory, ratings []domain.PlayerElo) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	// Double guard: the conditional marker update and the history count are
	// both evaluated inside the write transaction.
	existing, err := qtx.CountEloHistoryByScrim(ctx, scrimID)
	if err != nil {
		return err
	}
	if existing > 0 {
		return domain.ErrAlreadyProcessed
	}

	rows, err := qtx.MarkRankedProcessed(ctx, db.MarkRankedProcessedParams{
		ProcessedAt: now,
		UpdatedAt:   now,
		ID:          scrimID,
	})
	if err != nil {
		return fmt.Errorf("failed to mark scrim processed: %w", err)
	}
	if rows == 0 {
		return domain.ErrAlreadyProcessed
	}

	for _, h := range histories {
		id := h.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}

		err = qtx.InsertEloHistory(ctx, db.InsertEloHistoryParams{
			ID:            id,
			NameKey:       h.NameKey,
			ScrimID:       h.ScrimID,
			EloBefore:     int64(h.EloBefore),
			EloAfter:      int64(h.EloAfter),
			EloChange:     int64(h.EloChange),
			Result:        string(h.Result),
			Team:          string(h.Team),
			TeamScore:     int64(h.TeamScore),
			OpponentScore: int64(h.OpponentScore),
			Kills:         int64(h.Kills),
			Deaths:        int64(h.Deaths),
			KFactor:       int64(h.KFactor),
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("failed to insert elo history for %s: %w", h.NameKey, err)
		}
	}

	for _, p := range ratings {
		err = qtx.UpsertPlayerElo(ctx, db.UpsertPlayerEloParams{
			NameKey:     p.NameKey,
			DisplayName: p.DisplayName,
			Elo:         int64(p.Elo),
			GamesPlayed: int64(p.GamesPlayed),
			Wins:        int64(p.Wins),
			Losses:      int64(p.Losses),
			Draws:       int64(p.Draws),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert player elo for %s: %w", p.NameKey, err)
		}
	}

	return tx.Commit()
}

// Revert subtracts every history row of a scrim back out of the current
// ratings, deletes the rows and clears the idempotency marker, all in one
// transaction. This is the only mutation path for written rating data.
func (r *EloRepository) Revert(ctx context.Context, scrimID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	histories, err := qtx.ListEloHistoryByScrim(ctx, scrimID)
	if err != nil {
		return err
	}
	if len(histories) == 0 {
		return domain.ErrNotFound
	}

	for _, h := range histories {
		current, err := qtx.GetPlayerElo(ctx, h.NameKey)
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn().Str("name_key", h.NameKey).Str("scrim_id", scrimID).
				Msg("history row without player rating, skipping revert")
			continue
		}
		if err != nil {
			return err
		}

		wins, losses, draws := current.Wins, current.Losses, current.Draws
		switch domain.MatchResult(h.Result) {
		case domain.ResultWin:
			wins--
		case domain.ResultLoss:
			losses--
		case domain.ResultDraw:
			draws--
		}

		err = qtx.UpsertPlayerElo(ctx, db.UpsertPlayerEloParams{
			NameKey:     current.NameKey,
			DisplayName: current.DisplayName,
			Elo:         current.Elo - h.EloChange,
			GamesPlayed: current.GamesPlayed - 1,
			Wins:        wins,
			Losses:      losses,
			Draws:       draws,
			CreatedAt:   current.CreatedAt,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("failed to revert rating for %s: %w", h.NameKey, err)
		}
	}

	if err := qtx.DeleteEloHistoryByScrim(ctx, scrimID); err != nil {
		return fmt.Errorf("failed to delete elo history: %w", err)
	}

	err = qtx.ClearRankedProcessed(ctx, db.ClearRankedProcessedParams{
		UpdatedAt: now,
		ID:        scrimID,
	})
	if err != nil {
		return fmt.Errorf("failed to clear processed marker: %w", err)
	}

	return tx.Commit()
}

func (r *EloRepository) HistoryByScrim(ctx context.Context, scrimID string) ([]domain.EloHistory, error) {
	rows, err := r.queries.ListEloHistoryByScrim(ctx, scrimID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.EloHistory, len(rows))
	for i, h := range rows {
		result[i] = toDomainHistory(h)
	}
	return result, nil
}

func (r *EloRepository) HistoryByName(ctx context.Context, nameKey string, limit int) ([]domain.EloHistory, error) {
	rows, err := r.queries.ListEloHistoryByName(ctx, db.ListEloHistoryByNameParams{
		NameKey: nameKey,
		Limit:   int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.EloHistory, len(rows))
	for i, h := range rows {
		result[i] = toDomainHistory(h)
	}
	return result, nil
}

func (r *EloRepository) Leaderboard(ctx context.Context, limit int) ([]domain.PlayerElo, error) {
	rows, err := r.queries.ListLeaderboard(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]domain.PlayerElo, len(rows))
	for i, p := range rows {
		result[i] = domain.PlayerElo{
			NameKey:     p.NameKey,
			DisplayName: p.DisplayName,
			Elo:         int(p.Elo),
			GamesPlayed: int(p.GamesPlayed),
			Wins:        int(p.Wins),
			Losses:      int(p.Losses),
			Draws:       int(p.Draws),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	return result, nil
}

func toDomainHistory(h db.EloHistory) domain.EloHistory {
	return domain.EloHistory{
		ID:            h.ID,
		NameKey:       h.NameKey,
		ScrimID:       h.ScrimID,
		EloBefore:     int(h.EloBefore),
		EloAfter:      int(h.EloAfter),
		EloChange:     int(h.EloChange),
		Result:        domain.MatchResult(h.Result),
		Team:          domain.Team(h.Team),
		TeamScore:     int(h.TeamScore),
		OpponentScore: int(h.OpponentScore),
		Kills:         int(h.Kills),
		Deaths:        int(h.Deaths),
		KFactor:       int(h.KFactor),
		CreatedAt:     h.CreatedAt,
	}
}
