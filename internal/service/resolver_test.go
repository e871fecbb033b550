package service

import (
	"context"
	"testing"

	"scrimhub/internal/api"
	"scrimhub/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamPtr(t domain.Team) *domain.Team { return &t }

func TestResolveDisplayNameFallback(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewIdentityResolver(env.telemetry, env.gameNames, zerolog.Nop())

	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "ALICE", Kills: 21, Deaths: 9},
		api.SessionPlayer{Name: "somebody", Kills: 3, Deaths: 3},
	)

	players := []domain.ScrimPlayer{
		{AccountID: "acc-alice", DisplayName: "alice", Team: teamPtr(domain.TeamA)},
		{AccountID: "acc-bob", DisplayName: "Bob", Team: teamPtr(domain.TeamB)},
	}
	resolutions, err := resolver.Resolve(context.Background(),
		&domain.Scrim{ID: "s1", TrackerSessionID: "sess-1"}, players)
	require.NoError(t, err)
	require.Len(t, resolutions, 2)

	// Display-name match is case-insensitive.
	require.NotNil(t, resolutions[0].Matched)
	assert.Equal(t, "alice", resolutions[0].Matched.NameKey)
	assert.Equal(t, 21, resolutions[0].Matched.Kills)

	// Bob is nowhere in the session; excluded, not an error.
	assert.Nil(t, resolutions[1].Matched)
}

func TestResolveAliasBeatsDisplayName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resolver := NewIdentityResolver(env.telemetry, env.gameNames, zerolog.Nop())

	_, err := env.gameNames.Claim(ctx, "acc-alice", "SmurfQueen")
	require.NoError(t, err)

	// Both the alias and the display name appear in the session; the
	// declared alias wins.
	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "SmurfQueen", Kills: 25, Deaths: 5},
		api.SessionPlayer{Name: "Alice", Kills: 1, Deaths: 19},
	)

	resolutions, err := resolver.Resolve(ctx,
		&domain.Scrim{ID: "s1", TrackerSessionID: "sess-1"},
		[]domain.ScrimPlayer{
			{AccountID: "acc-alice", DisplayName: "Alice", Team: teamPtr(domain.TeamA)},
		})
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	require.NotNil(t, resolutions[0].Matched)
	assert.Equal(t, "smurfqueen", resolutions[0].Matched.NameKey)
	assert.Equal(t, 25, resolutions[0].Matched.Kills)
}

func TestResolveSkipsUnassignedPlayers(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewIdentityResolver(env.telemetry, env.gameNames, zerolog.Nop())

	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "Alice", Kills: 10, Deaths: 10},
	)

	resolutions, err := resolver.Resolve(context.Background(),
		&domain.Scrim{ID: "s1", TrackerSessionID: "sess-1"},
		[]domain.ScrimPlayer{
			{AccountID: "acc-alice", DisplayName: "Alice"}, // never assigned
		})
	require.NoError(t, err)
	assert.Empty(t, resolutions)
}

func TestResolveMergesMultipleSessions(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewIdentityResolver(env.telemetry, env.gameNames, zerolog.Nop())

	// A two-map night split across two recorded sessions.
	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "Alice", Kills: 12, Deaths: 8},
	)
	env.telemetry.sessions["sess-2"] = sessionOf(
		api.SessionPlayer{Name: "alice", Kills: 9, Deaths: 11},
	)

	resolutions, err := resolver.Resolve(context.Background(),
		&domain.Scrim{ID: "s1", TrackerSessionID: "sess-1+sess-2"},
		[]domain.ScrimPlayer{
			{AccountID: "acc-alice", DisplayName: "Alice", Team: teamPtr(domain.TeamA)},
		})
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	require.NotNil(t, resolutions[0].Matched)
	assert.Equal(t, 21, resolutions[0].Matched.Kills)
	assert.Equal(t, 19, resolutions[0].Matched.Deaths)
}

func TestResolveSessionFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewIdentityResolver(env.telemetry, env.gameNames, zerolog.Nop())

	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "Alice", Kills: 12, Deaths: 8},
	)

	// One of the linked sessions is missing; the whole resolve fails so
	// partial stats never feed a rating pass.
	_, err := resolver.Resolve(context.Background(),
		&domain.Scrim{ID: "s1", TrackerSessionID: "sess-1+sess-gone"},
		[]domain.ScrimPlayer{
			{AccountID: "acc-alice", DisplayName: "Alice", Team: teamPtr(domain.TeamA)},
		})
	assert.ErrorIs(t, err, domain.ErrTelemetryUnavailable)
}

func TestSplitSessionIDs(t *testing.T) {
	assert.Equal(t, []string{"a"}, SplitSessionIDs("a"))
	assert.Equal(t, []string{"a", "b"}, SplitSessionIDs("a+b"))
	assert.Equal(t, []string{"a", "b"}, SplitSessionIDs(" a + b "))
	assert.Nil(t, SplitSessionIDs(""))
}
