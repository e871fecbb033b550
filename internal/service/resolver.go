package service

import (
	"context"
	"scrimhub/internal/api"
	"scrimhub/internal/constants"
	"scrimhub/internal/domain"
	"scrimhub/internal/repository"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Telemetry is the read-only external session store. Satisfied by
// *api.TrackerClient; tests stub it.
type Telemetry interface {
	GetSession(ctx context.Context, sessionID string) (*api.SessionResponse, error)
}

// MatchedIdentity is the telemetry side of a successful reconciliation.
type MatchedIdentity struct {
	Name    string
	NameKey string
	Kills   int
	Deaths  int
}

// Resolution ties one scrim participant to their telemetry identity.
// Matched is nil for participants telemetry never saw; rating skips them
// rather than failing.
type Resolution struct {
	AccountID   string
	DisplayName string
	Team        domain.Team
	Matched     *MatchedIdentity
}

// IdentityResolver maps telemetry player names to scrim participants via
// the account's declared aliases, falling back to the platform display
// name. Matching is case-insensitive.
type IdentityResolver struct {
	telemetry Telemetry
	gameNames *repository.GameNameRepository
	logger    zerolog.Logger
}

func NewIdentityResolver(telemetry Telemetry, gameNames *repository.GameNameRepository, logger zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{telemetry: telemetry, gameNames: gameNames, logger: logger}
}

// Resolve fetches every linked session and reconciles each assigned
// participant. Participants without a team assignment are ignored.
func (r *IdentityResolver) Resolve(ctx context.Context, scrim *domain.Scrim, players []domain.ScrimPlayer) ([]Resolution, error) {
	stats, err := r.fetchSessions(ctx, scrim.TrackerSessionID)
	if err != nil {
		return nil, err
	}

	var resolutions []Resolution
	for _, p := range players {
		if p.Team == nil {
			continue
		}

		res := Resolution{
			AccountID:   p.AccountID,
			DisplayName: p.DisplayName,
			Team:        *p.Team,
		}

		aliases, err := r.gameNames.ListByAccount(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}

		for _, alias := range aliases {
			if m, ok := stats[alias.NameKey]; ok {
				res.Matched = &m
				break
			}
		}
		if res.Matched == nil {
			if m, ok := stats[strings.ToLower(p.DisplayName)]; ok {
				res.Matched = &m
			}
		}

		if res.Matched == nil {
			r.logger.Debug().
				Str("scrim_id", scrim.ID).
				Str("account_id", p.AccountID).
				Str("display_name", p.DisplayName).
				Msg("participant not found in telemetry, excluded from rating")
		}

		resolutions = append(resolutions, res)
	}

	return resolutions, nil
}

// fetchSessions loads every "+"-delimited session concurrently and merges
// player stats by lowercased name, summing across sessions.
func (r *IdentityResolver) fetchSessions(ctx context.Context, sessionID string) (map[string]MatchedIdentity, error) {
	ids := SplitSessionIDs(sessionID)

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(apiCtx)
	responses := make([]*api.SessionResponse, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			resp, err := r.telemetry.GetSession(gCtx, id)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := make(map[string]MatchedIdentity)
	for _, resp := range responses {
		for _, p := range resp.Data.Players {
			key := strings.ToLower(p.Name)
			m := stats[key]
			m.Name = p.Name
			m.NameKey = key
			m.Kills += p.Kills
			m.Deaths += p.Deaths
			stats[key] = m
		}
	}
	return stats, nil
}

// SplitSessionIDs splits a stored "+"-delimited session reference.
func SplitSessionIDs(sessionID string) []string {
	var ids []string
	for _, part := range strings.Split(sessionID, "+") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
