package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"scrimhub/internal/constants"
	"scrimhub/internal/domain"
	"scrimhub/internal/repository"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ScrimService drives the scrim lifecycle. Every mutating call re-evaluates
// whether a phase transition is now satisfied; transitions themselves are
// guarded compare-and-swap updates in the repository, so concurrent pollers
// produce exactly one winner.
type ScrimService struct {
	scrimRepo *repository.ScrimRepository
	gameNames *repository.GameNameRepository
	rating    *RatingService
	logger    zerolog.Logger
}

func NewScrimService(scrimRepo *repository.ScrimRepository, gameNames *repository.GameNameRepository, rating *RatingService, logger zerolog.Logger) *ScrimService {
	return &ScrimService{
		scrimRepo: scrimRepo,
		gameNames: gameNames,
		rating:    rating,
		logger:    logger,
	}
}

type CreateOptions struct {
	Title             string
	Map               string
	MinPlayersPerTeam int
	MaxPlayersPerTeam int
	Ranked            *bool
}

func (s *ScrimService) Create(ctx context.Context, creatorID, creatorName string, opts CreateOptions) (*domain.Scrim, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	minPerTeam := opts.MinPlayersPerTeam
	if minPerTeam <= 0 {
		minPerTeam = constants.DefaultMinPlayersPerTeam
	}
	maxPerTeam := opts.MaxPlayersPerTeam
	if maxPerTeam <= 0 {
		maxPerTeam = constants.DefaultMaxPlayersPerTeam
	}
	if maxPerTeam < minPerTeam {
		maxPerTeam = minPerTeam
	}

	ranked := true
	if opts.Ranked != nil {
		ranked = *opts.Ranked
	}

	now := time.Now()
	scrim := &domain.Scrim{
		ID:                id,
		CreatorID:         creatorID,
		CreatorName:       creatorName,
		Title:             opts.Title,
		Map:               opts.Map,
		MinPlayersPerTeam: minPerTeam,
		MaxPlayersPerTeam: maxPerTeam,
		Status:            domain.StatusWaiting,
		IsRanked:          ranked,
		ExpiresAt:         now.Add(constants.ScrimTTL),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.scrimRepo.Create(ctx, scrim); err != nil {
		return nil, fmt.Errorf("failed to create scrim: %w", err)
	}

	s.logger.Info().
		Str("scrim_id", id).
		Str("creator_id", creatorID).
		Bool("ranked", ranked).
		Int("min_per_team", minPerTeam).
		Int("max_per_team", maxPerTeam).
		Msg("scrim created")
	return scrim, nil
}

func (s *ScrimService) Join(ctx context.Context, scrimID, accountID, displayName string) (*domain.ScrimDetail, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if !isJoinable(scrim.Status) {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	// Re-joining is idempotent; the capacity check only applies to new
	// members.
	if _, err := s.scrimRepo.GetPlayer(ctx, scrimID, accountID); errors.Is(err, domain.ErrNotFound) {
		count, err := s.scrimRepo.CountPlayers(ctx, scrimID)
		if err != nil {
			return nil, err
		}
		if count >= scrim.MaxPlayersPerTeam*2 {
			return nil, fmt.Errorf("scrim %s: %w", scrimID, domain.ErrScrimFull)
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.scrimRepo.AddPlayer(ctx, scrimID, accountID, displayName); err != nil {
		return nil, fmt.Errorf("failed to join scrim: %w", err)
	}

	s.logger.Info().Str("scrim_id", scrimID).Str("account_id", accountID).Msg("player joined scrim")
	return s.scrimRepo.GetDetail(ctx, scrimID)
}

func (s *ScrimService) Leave(ctx context.Context, scrimID, accountID string) error {
	if _, err := s.scrimRepo.Get(ctx, scrimID); err != nil {
		return err
	}
	if err := s.scrimRepo.RemovePlayer(ctx, scrimID, accountID); err != nil {
		return err
	}
	s.logger.Info().Str("scrim_id", scrimID).Str("account_id", accountID).Msg("player left scrim")
	return nil
}

// ToggleReady flips the caller's ready flag and re-evaluates the auto-start
// condition.
func (s *ScrimService) ToggleReady(ctx context.Context, scrimID, accountID string) (*domain.ScrimDetail, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if !isJoinable(scrim.Status) {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	player, err := s.scrimRepo.GetPlayer(ctx, scrimID, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.scrimRepo.SetReady(ctx, scrimID, accountID, !player.IsReady); err != nil {
		return nil, err
	}

	if err := s.maybeStart(ctx, scrim); err != nil {
		return nil, err
	}

	return s.scrimRepo.GetDetail(ctx, scrimID)
}

// maybeStart starts the match once every participant is ready, the count is
// even and both teams can be filled to the minimum. The repository's CAS
// makes redundant evaluation by concurrent ready-togglers harmless.
func (s *ScrimService) maybeStart(ctx context.Context, scrim *domain.Scrim) error {
	players, err := s.scrimRepo.ListPlayers(ctx, scrim.ID)
	if err != nil {
		return err
	}

	if len(players) < scrim.MinPlayersPerTeam*2 || len(players)%2 != 0 {
		return nil
	}
	for _, p := range players {
		if !p.IsReady {
			return nil
		}
	}

	assignments := splitTeams(players)
	started, err := s.scrimRepo.StartWithTeams(ctx, scrim.ID, assignments)
	if err != nil {
		return err
	}
	if started {
		s.logger.Info().
			Str("scrim_id", scrim.ID).
			Int("players", len(players)).
			Msg("all players ready, scrim started")
	}
	return nil
}

// splitTeams randomly partitions players into two equal teams with an
// unbiased shuffle.
func splitTeams(players []domain.ScrimPlayer) map[string]domain.Team {
	shuffled := make([]domain.ScrimPlayer, len(players))
	copy(shuffled, players)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignments := make(map[string]domain.Team, len(shuffled))
	half := len(shuffled) / 2
	for i, p := range shuffled {
		if i < half {
			assignments[p.AccountID] = domain.TeamA
		} else {
			assignments[p.AccountID] = domain.TeamB
		}
	}
	return assignments
}

// EndGame moves an in-progress scrim to scoring. Any participant or the
// creator may end the game.
func (s *ScrimService) EndGame(ctx context.Context, scrimID, accountID string) (*domain.Scrim, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}

	if err := s.requireParticipantOrCreator(ctx, scrim, accountID); err != nil {
		return nil, err
	}

	moved, err := s.scrimRepo.Finish(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	s.logger.Info().Str("scrim_id", scrimID).Str("account_id", accountID).Msg("game ended, scoring open")
	return s.scrimRepo.Get(ctx, scrimID)
}

func (s *ScrimService) Cancel(ctx context.Context, scrimID, accountID string) (*domain.Scrim, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if scrim.CreatorID != accountID {
		return nil, fmt.Errorf("account %s is not the creator: %w", accountID, domain.ErrUnauthorized)
	}

	cancelled, err := s.scrimRepo.Cancel(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	s.logger.Info().Str("scrim_id", scrimID).Msg("scrim cancelled")
	return s.scrimRepo.Get(ctx, scrimID)
}

// VoteReroll toggles the caller's reroll vote and executes the reroll once
// strictly more than half of the assigned players voted for it.
func (s *ScrimService) VoteReroll(ctx context.Context, scrimID, accountID string) (*domain.ScrimDetail, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if scrim.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	player, err := s.scrimRepo.GetPlayer(ctx, scrimID, accountID)
	if err != nil {
		return nil, err
	}
	if player.Team == nil {
		return nil, fmt.Errorf("account %s has no team assignment: %w", accountID, domain.ErrInvalidPhase)
	}

	if err := s.scrimRepo.SetRerollVote(ctx, scrimID, accountID, !player.VotedReroll); err != nil {
		return nil, err
	}

	rerolled, err := s.scrimRepo.ExecuteReroll(ctx, scrimID, splitTeams)
	if err != nil {
		return nil, err
	}
	if rerolled {
		s.logger.Info().Str("scrim_id", scrimID).Msg("reroll threshold reached, teams reshuffled")
	}

	return s.scrimRepo.GetDetail(ctx, scrimID)
}

// SubmitScore records the caller's claimed score and finalizes the scrim
// once two submissions agree. Finalizing a ranked scrim with a linked
// telemetry session triggers rating processing; a telemetry outage there is
// logged and swallowed since rating can be retried later.
func (s *ScrimService) SubmitScore(ctx context.Context, scrimID, accountID, displayName string, teamA, teamB int) (*domain.ScrimDetail, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}
	if scrim.Status != domain.StatusScoring {
		return nil, fmt.Errorf("scrim %s is %s: %w", scrimID, scrim.Status, domain.ErrInvalidPhase)
	}

	if _, err := s.scrimRepo.GetPlayer(ctx, scrimID, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account %s is not a participant: %w", accountID, domain.ErrUnauthorized)
		}
		return nil, err
	}

	finalized, err := s.scrimRepo.SubmitScore(ctx, &domain.ScoreSubmission{
		ScrimID:     scrimID,
		AccountID:   accountID,
		DisplayName: displayName,
		TeamAScore:  teamA,
		TeamBScore:  teamB,
	})
	if err != nil {
		return nil, err
	}

	if finalized {
		s.logger.Info().
			Str("scrim_id", scrimID).
			Int("team_a", teamA).
			Int("team_b", teamB).
			Msg("score consensus reached, scrim finalized")

		if scrim.IsRanked && scrim.TrackerSessionID != "" {
			if err := s.rating.ProcessRankedScrim(ctx, scrimID); err != nil {
				// Finalization never fails because rating could not run.
				s.logger.Warn().Err(err).Str("scrim_id", scrimID).Msg("automatic rating processing failed")
			}
		}
	}

	return s.scrimRepo.GetDetail(ctx, scrimID)
}

// SetTrackerSession links one or more telemetry sessions. Accepts raw ids
// or shareable URLs, "+"-delimited.
func (s *ScrimService) SetTrackerSession(ctx context.Context, scrimID, accountID, rawInput string) (*domain.Scrim, error) {
	scrim, err := s.scrimRepo.Get(ctx, scrimID)
	if err != nil {
		return nil, err
	}

	if err := s.requireParticipantOrCreator(ctx, scrim, accountID); err != nil {
		return nil, err
	}

	normalized, err := NormalizeSessionInput(rawInput)
	if err != nil {
		return nil, err
	}

	if err := s.scrimRepo.SetTrackerSession(ctx, scrimID, normalized); err != nil {
		return nil, err
	}

	s.logger.Info().Str("scrim_id", scrimID).Str("session_id", normalized).Msg("tracker session linked")
	return s.scrimRepo.Get(ctx, scrimID)
}

func (s *ScrimService) GetDetail(ctx context.Context, scrimID string) (*domain.ScrimDetail, error) {
	return s.scrimRepo.GetDetail(ctx, scrimID)
}

// ListActive sweeps expired scrims first, then returns everything still in
// flight. Running the reaper on every list read keeps expiry lazy but
// prompt.
func (s *ScrimService) ListActive(ctx context.Context) ([]domain.Scrim, error) {
	if _, err := s.scrimRepo.ExpireStale(ctx); err != nil {
		return nil, err
	}

	var active []domain.Scrim
	for _, status := range []domain.ScrimStatus{domain.StatusWaiting, domain.StatusInProgress, domain.StatusScoring} {
		scrims, err := s.scrimRepo.ListByStatus(ctx, status, constants.ActiveScrimLimit)
		if err != nil {
			return nil, err
		}
		active = append(active, scrims...)
	}
	return active, nil
}

// ClaimGameName declares an alias linking the account to its in-game name.
func (s *ScrimService) ClaimGameName(ctx context.Context, accountID, gameName string) (*domain.UserGameName, error) {
	gameName = strings.TrimSpace(gameName)
	if gameName == "" {
		return nil, fmt.Errorf("empty game name: %w", domain.ErrConflict)
	}
	return s.gameNames.Claim(ctx, accountID, gameName)
}

func (s *ScrimService) requireParticipantOrCreator(ctx context.Context, scrim *domain.Scrim, accountID string) error {
	if scrim.CreatorID == accountID {
		return nil
	}
	if _, err := s.scrimRepo.GetPlayer(ctx, scrim.ID, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("account %s is not a participant: %w", accountID, domain.ErrUnauthorized)
		}
		return err
	}
	return nil
}

// isJoinable treats the reserved ready_check state as an alias of waiting.
func isJoinable(status domain.ScrimStatus) bool {
	return status == domain.StatusWaiting || status == domain.StatusReadyCheck
}

// NormalizeSessionInput turns a raw session id, a shareable URL or a
// "+"-delimited list of either into the canonical stored form: URL-decoded,
// query strings and trailing slashes stripped, last path segment kept.
func NormalizeSessionInput(raw string) (string, error) {
	var ids []string
	for _, part := range strings.Split(raw, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if decoded, err := url.QueryUnescape(part); err == nil {
			part = decoded
		}
		if i := strings.IndexAny(part, "?#"); i >= 0 {
			part = part[:i]
		}
		part = strings.TrimRight(part, "/")
		if i := strings.LastIndex(part, "/"); i >= 0 {
			part = part[i+1:]
		}
		if part != "" {
			ids = append(ids, part)
		}
	}

	if len(ids) == 0 {
		return "", fmt.Errorf("no session id in %q: %w", raw, domain.ErrConflict)
	}
	return strings.Join(ids, "+"), nil
}
