package service

import (
	"context"
	"fmt"
	"scrimhub/internal/config"
	"scrimhub/internal/constants"
	"scrimhub/internal/domain"
	"scrimhub/internal/elo"
	"scrimhub/internal/repository"

	"github.com/rs/zerolog"
)

// RatingService converts finalized ranked scrims into persistent rating
// changes, exactly once per scrim.
type RatingService struct {
	scrimRepo *repository.ScrimRepository
	eloRepo   *repository.EloRepository
	resolver  *IdentityResolver
	adminID   string
	logger    zerolog.Logger
}

func NewRatingService(scrimRepo *repository.ScrimRepository, eloRepo *repository.EloRepository, resolver *IdentityResolver, cfg *config.Config, logger zerolog.Logger) *RatingService {
	return &RatingService{
		scrimRepo: scrimRepo,
		eloRepo:   eloRepo,
		resolver:  resolver,
		adminID:   cfg.AdminAccountID,
		logger:    logger,
	}
}

// ProcessRankedScrim applies the rating update for one finalized ranked
// scrim. Safe to call repeatedly: the idempotency marker and the history
// guard make the second and later calls no-ops.
func (s *RatingService) ProcessRankedScrim(ctx context.Context, scrimID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return err
	}

	switch {
	case scrim.Status != domain.StatusFinalized:
		return fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	case !scrim.IsRanked:
		return fmt.Errorf("scrim %s is unranked: %w", scrimID, domain.ErrInvalidPhase)
	case scrim.TeamAScore == nil || scrim.TeamBScore == nil:
		return fmt.Errorf("scrim %s has no final score: %w", scrimID, domain.ErrInvalidPhase)
	case scrim.TrackerSessionID == "":
		return fmt.Errorf("scrim %s has no telemetry session: %w", scrimID, domain.ErrInvalidPhase)
	case scrim.RankedProcessedAt != nil:
		return fmt.Errorf("scrim %s: %w", scrimID, domain.ErrAlreadyProcessed)
	}

	players, err := s.scrimRepo.ListPlayers(ctx, scrimID)
	if err != nil {
		return err
	}

	resolutions, err := s.resolver.Resolve(ctx, scrim, players)
	if err != nil {
		return err
	}

	// Two unaliased participants with colliding display names resolve to
	// the same telemetry identity; neither claim can be trusted, so both
	// are excluded like unmatched players.
	keyClaims := make(map[string]int)
	for _, res := range resolutions {
		if res.Matched != nil {
			keyClaims[res.Matched.NameKey]++
		}
	}

	input := elo.Input{TeamAScore: *scrim.TeamAScore, TeamBScore: *scrim.TeamBScore}
	matched := make(map[string]Resolution)
	ratings := make(map[string]*domain.PlayerElo)
	for _, res := range resolutions {
		if res.Matched == nil {
			continue
		}
		if keyClaims[res.Matched.NameKey] > 1 {
			s.logger.Warn().
				Str("scrim_id", scrimID).
				Str("account_id", res.AccountID).
				Str("name_key", res.Matched.NameKey).
				Msg("telemetry identity claimed by multiple participants, excluded from rating")
			continue
		}

		current, err := s.eloRepo.GetOrSeed(ctx, res.Matched.NameKey, res.Matched.Name, elo.SeedRating)
		if err != nil {
			return err
		}
		matched[res.Matched.NameKey] = res
		ratings[res.Matched.NameKey] = current

		player := elo.Player{
			NameKey: res.Matched.NameKey,
			Rating:  current.Elo,
			Team:    res.Team,
			Kills:   res.Matched.Kills,
		}
		if res.Team == domain.TeamA {
			input.TeamA = append(input.TeamA, player)
		} else {
			input.TeamB = append(input.TeamB, player)
		}
	}

	if len(matched) == 0 {
		return fmt.Errorf("scrim %s: %w", scrimID, domain.ErrNoMatchedPlayers)
	}

	deltas := elo.Compute(input)

	histories := make([]domain.EloHistory, 0, len(deltas))
	updates := make([]domain.PlayerElo, 0, len(deltas))
	for _, d := range deltas {
		res := matched[d.NameKey]
		current := ratings[d.NameKey]

		teamScore, oppScore := *scrim.TeamAScore, *scrim.TeamBScore
		if d.Team == domain.TeamB {
			teamScore, oppScore = oppScore, teamScore
		}

		histories = append(histories, domain.EloHistory{
			NameKey:       d.NameKey,
			ScrimID:       scrimID,
			EloBefore:     current.Elo,
			EloAfter:      current.Elo + d.Change,
			EloChange:     d.Change,
			Result:        d.Result,
			Team:          d.Team,
			TeamScore:     teamScore,
			OpponentScore: oppScore,
			Kills:         res.Matched.Kills,
			Deaths:        res.Matched.Deaths,
			KFactor:       elo.KFactor,
		})

		updated := *current
		updated.Elo += d.Change
		updated.GamesPlayed++
		switch d.Result {
		case domain.ResultWin:
			updated.Wins++
		case domain.ResultLoss:
			updated.Losses++
		case domain.ResultDraw:
			updated.Draws++
		}
		updates = append(updates, updated)
	}

	if err := s.eloRepo.ApplyRatings(ctx, scrimID, histories, updates); err != nil {
		return err
	}

	s.logger.Info().
		Str("scrim_id", scrimID).
		Int("rated_players", len(histories)).
		Int("skipped_players", len(resolutions)-len(histories)).
		Msg("ranked scrim processed")
	return nil
}

// AdminRecalculate reverts a scrim's rating effects and reprocesses it.
// Restricted to the configured admin account.
func (s *RatingService) AdminRecalculate(ctx context.Context, scrimID, callerID string) error {
	if s.adminID == "" || callerID != s.adminID {
		return fmt.Errorf("account %s: %w", callerID, domain.ErrUnauthorized)
	}

	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return err
	}
	if scrim.Status != domain.StatusFinalized || !scrim.IsRanked {
		return fmt.Errorf("scrim %s is not a finalized ranked scrim: %w", scrimID, domain.ErrInvalidPhase)
	}

	if err := s.eloRepo.Revert(ctx, scrimID); err != nil {
		return err
	}

	s.logger.Info().Str("scrim_id", scrimID).Str("admin_id", callerID).Msg("rating effects reverted, reprocessing")
	return s.ProcessRankedScrim(ctx, scrimID)
}

// HistoryForScrim exposes the applied rating rows for inspection.
func (s *RatingService) HistoryForScrim(ctx context.Context, scrimID string) ([]domain.EloHistory, error) {
	return s.eloRepo.HistoryByScrim(ctx, scrimID)
}

func (s *RatingService) Leaderboard(ctx context.Context) ([]domain.PlayerElo, error) {
	return s.eloRepo.Leaderboard(ctx, constants.LeaderboardLimit)
}
