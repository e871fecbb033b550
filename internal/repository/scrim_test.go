package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"scrimhub/internal/database"
	"scrimhub/internal/db"
	"scrimhub/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScrimRepo(t *testing.T) *ScrimRepository {
	t.Helper()
	log := zerolog.Nop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqlDB, err := database.Open(dsn, log)
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return NewScrimRepository(sqlDB, db.New(sqlDB), log)
}

// inProgressFour seeds a 2v2 scrim with four assigned players.
func inProgressFour(t *testing.T, repo *ScrimRepository) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	scrim := &domain.Scrim{
		ID: "scrim-1", CreatorID: "acc-alice", CreatorName: "Alice",
		MinPlayersPerTeam: 2, MaxPlayersPerTeam: 2,
		Status: domain.StatusWaiting, IsRanked: true,
		ExpiresAt: now.Add(20 * time.Minute), CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, scrim))
	for _, p := range []struct{ id, name string }{
		{"acc-bob", "Bob"}, {"acc-cara", "Cara"}, {"acc-dan", "Dan"},
	} {
		require.NoError(t, repo.AddPlayer(ctx, scrim.ID, p.id, p.name))
	}

	started, err := repo.StartWithTeams(ctx, scrim.ID, map[string]domain.Team{
		"acc-alice": domain.TeamA, "acc-bob": domain.TeamA,
		"acc-cara": domain.TeamB, "acc-dan": domain.TeamB,
	})
	require.NoError(t, err)
	require.True(t, started)
	return scrim.ID
}

func teamsByAccount(t *testing.T, repo *ScrimRepository, scrimID string) map[string]domain.Team {
	t.Helper()
	players, err := repo.ListPlayers(context.Background(), scrimID)
	require.NoError(t, err)

	teams := make(map[string]domain.Team, len(players))
	for _, p := range players {
		require.NotNil(t, p.Team)
		teams[p.AccountID] = *p.Team
	}
	return teams
}

func TestStartWithTeamsSingleWinner(t *testing.T) {
	repo := newScrimRepo(t)
	ctx := context.Background()

	scrimID := inProgressFour(t, repo)
	first := teamsByAccount(t, repo, scrimID)

	// The losing caller of the waiting -> in_progress race gets false and
	// writes nothing, even with a different split.
	started, err := repo.StartWithTeams(ctx, scrimID, map[string]domain.Team{
		"acc-alice": domain.TeamB, "acc-bob": domain.TeamB,
		"acc-cara": domain.TeamA, "acc-dan": domain.TeamA,
	})
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, first, teamsByAccount(t, repo, scrimID))
}

func TestFinishAndCancelAreGuarded(t *testing.T) {
	repo := newScrimRepo(t)
	ctx := context.Background()

	scrimID := inProgressFour(t, repo)

	// Cancel only applies to a waiting lobby.
	cancelled, err := repo.Cancel(ctx, scrimID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	moved, err := repo.Finish(ctx, scrimID)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.Finish(ctx, scrimID)
	require.NoError(t, err)
	assert.False(t, moved, "second in_progress -> scoring caller must observe a no-op")
}

func TestExecuteRerollRequiresInProgress(t *testing.T) {
	repo := newScrimRepo(t)
	ctx := context.Background()

	scrimID := inProgressFour(t, repo)
	before := teamsByAccount(t, repo, scrimID)

	// Majority votes land, then the game ends before the reroll executes.
	for _, id := range []string{"acc-alice", "acc-bob", "acc-cara"} {
		require.NoError(t, repo.SetRerollVote(ctx, scrimID, id, true))
	}
	moved, err := repo.Finish(ctx, scrimID)
	require.NoError(t, err)
	require.True(t, moved)

	rerolled, err := repo.ExecuteReroll(ctx, scrimID, func(players []domain.ScrimPlayer) map[string]domain.Team {
		flipped := make(map[string]domain.Team, len(players))
		for _, p := range players {
			if *p.Team == domain.TeamA {
				flipped[p.AccountID] = domain.TeamB
			} else {
				flipped[p.AccountID] = domain.TeamA
			}
		}
		return flipped
	})
	require.NoError(t, err)
	assert.False(t, rerolled, "reroll must not execute once the scrim left in_progress")
	assert.Equal(t, before, teamsByAccount(t, repo, scrimID))
}
