package service

import (
	"context"
	"testing"
	"time"

	"scrimhub/internal/api"
	"scrimhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{Title: "quick game"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWaiting, scrim.Status)
	assert.True(t, scrim.IsRanked)
	assert.Equal(t, 1, scrim.MinPlayersPerTeam)
	assert.Equal(t, 5, scrim.MaxPlayersPerTeam)
	assert.WithinDuration(t, time.Now().Add(20*time.Minute), scrim.ExpiresAt, 5*time.Second)

	// The creator is auto-enrolled.
	detail, err := env.scrims.GetDetail(ctx, scrim.ID)
	require.NoError(t, err)
	require.Len(t, detail.Players, 1)
	assert.Equal(t, "acc-alice", detail.Players[0].AccountID)
	assert.False(t, detail.Players[0].IsReady)
}

func TestJoinCapacityAndRejoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{
		MinPlayersPerTeam: 1,
		MaxPlayersPerTeam: 1,
	})
	require.NoError(t, err)

	_, err = env.scrims.Join(ctx, scrim.ID, "acc-bob", "Bob")
	require.NoError(t, err)

	_, err = env.scrims.Join(ctx, scrim.ID, "acc-cara", "Cara")
	assert.ErrorIs(t, err, domain.ErrScrimFull)

	// Re-joining as an existing member is not a capacity violation.
	detail, err := env.scrims.Join(ctx, scrim.ID, "acc-bob", "Bobby")
	require.NoError(t, err)
	assert.Len(t, detail.Players, 2)

	_, err = env.scrims.Join(ctx, "no-such-scrim", "acc-bob", "Bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAutoStartAssignsEvenTeams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)

	detail, err := env.scrims.GetDetail(ctx, scrim.ID)
	require.NoError(t, err)
	require.Len(t, detail.Players, 4)

	counts := map[domain.Team]int{}
	for _, p := range detail.Players {
		require.NotNil(t, p.Team, "player %s has no team after start", p.AccountID)
		counts[*p.Team]++
	}
	assert.Equal(t, 2, counts[domain.TeamA])
	assert.Equal(t, 2, counts[domain.TeamB])
	assert.NotNil(t, detail.Scrim.StartedAt)

	// Joining after start is rejected.
	_, err = env.scrims.Join(ctx, scrim.ID, "acc-eve", "Eve")
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestNoStartWhileUnreadyOrOdd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{
		MinPlayersPerTeam: 1,
		MaxPlayersPerTeam: 2,
	})
	require.NoError(t, err)
	_, err = env.scrims.Join(ctx, scrim.ID, "acc-bob", "Bob")
	require.NoError(t, err)
	_, err = env.scrims.Join(ctx, scrim.ID, "acc-cara", "Cara")
	require.NoError(t, err)

	// Three ready players is an odd count, no start.
	for _, id := range []string{"acc-alice", "acc-bob", "acc-cara"} {
		_, err = env.scrims.ToggleReady(ctx, scrim.ID, id)
		require.NoError(t, err)
	}
	current, err := env.scrimRepo.Get(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, current.Status)

	// Cara leaves; two ready players make an even, full-enough lobby.
	require.NoError(t, env.scrims.Leave(ctx, scrim.ID, "acc-cara"))
	_, err = env.scrims.ToggleReady(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)
	_, err = env.scrims.ToggleReady(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)

	current, err = env.scrimRepo.Get(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, current.Status)
}

func TestCancelCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{})
	require.NoError(t, err)

	_, err = env.scrims.Cancel(ctx, scrim.ID, "acc-bob")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	cancelled, err := env.scrims.Cancel(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = env.scrims.Cancel(ctx, scrim.ID, "acc-alice")
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestExpiredScrimRejectsJoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{})
	require.NoError(t, err)

	// Backdate the deadline, then let the list sweep reap it.
	_, err = env.db.ExecContext(ctx, "UPDATE scrims SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Minute), scrim.ID)
	require.NoError(t, err)

	active, err := env.scrims.ListActive(ctx)
	require.NoError(t, err)
	for _, s := range active {
		assert.NotEqual(t, scrim.ID, s.ID)
	}

	expired, err := env.scrimRepo.Get(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, expired.Status)

	_, err = env.scrims.Join(ctx, scrim.ID, "acc-bob", "Bob")
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestRerollVoting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)

	// One vote out of four assigned players is not a majority.
	detail, err := env.scrims.VoteReroll(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)
	votes := 0
	for _, p := range detail.Players {
		if p.VotedReroll {
			votes++
		}
	}
	assert.Equal(t, 1, votes)

	// Two of four is not strictly more than half either.
	_, err = env.scrims.VoteReroll(ctx, scrim.ID, "acc-bob")
	require.NoError(t, err)

	// The third vote crosses the threshold, reassigns teams and clears
	// every vote.
	detail, err = env.scrims.VoteReroll(ctx, scrim.ID, "acc-cara")
	require.NoError(t, err)

	counts := map[domain.Team]int{}
	for _, p := range detail.Players {
		assert.False(t, p.VotedReroll)
		require.NotNil(t, p.Team)
		counts[*p.Team]++
	}
	assert.Equal(t, 2, counts[domain.TeamA])
	assert.Equal(t, 2, counts[domain.TeamB])
}

func TestRerollRequiresInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{})
	require.NoError(t, err)

	_, err = env.scrims.VoteReroll(ctx, scrim.ID, "acc-alice")
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestVoteToggleOff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)

	_, err := env.scrims.VoteReroll(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)
	_, err = env.scrims.VoteReroll(ctx, scrim.ID, "acc-bob")
	require.NoError(t, err)

	// Bob retracts, so Cara's vote is still only two of four.
	_, err = env.scrims.VoteReroll(ctx, scrim.ID, "acc-bob")
	require.NoError(t, err)
	detail, err := env.scrims.VoteReroll(ctx, scrim.ID, "acc-cara")
	require.NoError(t, err)

	votes := 0
	for _, p := range detail.Players {
		if p.VotedReroll {
			votes++
		}
	}
	assert.Equal(t, 2, votes)
}

func TestScoreConsensus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)
	_, err := env.scrims.EndGame(ctx, scrim.ID, "acc-bob")
	require.NoError(t, err)

	// Submitting as a non-participant is rejected.
	_, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-eve", "Eve", 13, 7)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Three disagreeing claims reach no consensus.
	_, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-alice", "Alice", 13, 7)
	require.NoError(t, err)
	_, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-bob", "Bob", 13, 9)
	require.NoError(t, err)
	detail, err := env.scrims.SubmitScore(ctx, scrim.ID, "acc-cara", "Cara", 7, 13)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScoring, detail.Scrim.Status)
	assert.Len(t, detail.Submissions, 3)

	// Dan agrees with Alice, finalizing at 13:7.
	detail, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-dan", "Dan", 13, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, detail.Scrim.Status)
	require.NotNil(t, detail.Scrim.TeamAScore)
	require.NotNil(t, detail.Scrim.TeamBScore)
	assert.Equal(t, 13, *detail.Scrim.TeamAScore)
	assert.Equal(t, 7, *detail.Scrim.TeamBScore)
	require.NotNil(t, detail.Scrim.Winner)
	assert.Equal(t, domain.WinnerTeamA, *detail.Scrim.Winner)

	// Scoring a finalized scrim is over.
	_, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-alice", "Alice", 13, 7)
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestResubmissionReplacesOwnClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)
	_, err := env.scrims.EndGame(ctx, scrim.ID, "acc-alice")
	require.NoError(t, err)

	_, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-alice", "Alice", 13, 7)
	require.NoError(t, err)
	// Alice corrects herself; still a single submission, no consensus.
	detail, err := env.scrims.SubmitScore(ctx, scrim.ID, "acc-alice", "Alice", 13, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScoring, detail.Scrim.Status)
	assert.Len(t, detail.Submissions, 1)
	assert.Equal(t, 9, detail.Submissions[0].TeamBScore)

	detail, err = env.scrims.SubmitScore(ctx, scrim.ID, "acc-bob", "Bob", 13, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, detail.Scrim.Status)
}

func TestEndGameRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)

	_, err := env.scrims.EndGame(ctx, scrim.ID, "acc-eve")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	ended, err := env.scrims.EndGame(ctx, scrim.ID, "acc-dan")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScoring, ended.Status)
	assert.NotNil(t, ended.FinishedAt)

	_, err = env.scrims.EndGame(ctx, scrim.ID, "acc-dan")
	assert.ErrorIs(t, err, domain.ErrInvalidPhase)
}

func TestSetTrackerSessionNormalization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)

	updated, err := env.scrims.SetTrackerSession(ctx, scrim.ID, "acc-alice",
		"https://tracker.example.com/sessions/abc123?share=1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", updated.TrackerSessionID)

	// Outsiders cannot link sessions.
	_, err = env.scrims.SetTrackerSession(ctx, scrim.ID, "acc-eve", "abc123")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNormalizeSessionInput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare id", "abc123", "abc123", false},
		{"share url", "https://tracker.example.com/sessions/abc123", "abc123", false},
		{"url with query", "https://tracker.example.com/sessions/abc123?utm=x", "abc123", false},
		{"trailing slash", "https://tracker.example.com/sessions/abc123/", "abc123", false},
		{"url encoded", "https%3A%2F%2Ftracker.example.com%2Fsessions%2Fabc123", "abc123", false},
		{"multi session", "abc123 + def456", "abc123+def456", false},
		{"mixed", "https://tracker.example.com/sessions/abc123+def456", "abc123+def456", false},
		{"empty", "  + ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSessionInput(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalizeTriggersRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scrim := fourPlayerScrim(t, env)
	env.telemetry.sessions["sess-1"] = sessionOf(
		api.SessionPlayer{Name: "Alice", Kills: 20, Deaths: 10},
		api.SessionPlayer{Name: "Bob", Kills: 15, Deaths: 12},
		api.SessionPlayer{Name: "Cara", Kills: 12, Deaths: 14},
		api.SessionPlayer{Name: "Dan", Kills: 8, Deaths: 16},
	)

	_, err := env.scrims.SetTrackerSession(ctx, scrim.ID, "acc-alice", "sess-1")
	require.NoError(t, err)
	finishAndScore(t, env, scrim.ID, 13, 7)

	history, err := env.rating.HistoryForScrim(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	final, err := env.scrimRepo.Get(ctx, scrim.ID)
	require.NoError(t, err)
	assert.NotNil(t, final.RankedProcessedAt)

	board, err := env.rating.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, board, 4)
	for _, entry := range board {
		assert.Equal(t, 1, entry.GamesPlayed)
	}
}

func TestUnrankedScrimSkipsRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranked := false
	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{
		MinPlayersPerTeam: 1,
		MaxPlayersPerTeam: 1,
		Ranked:            &ranked,
	})
	require.NoError(t, err)
	_, err = env.scrims.Join(ctx, scrim.ID, "acc-bob", "Bob")
	require.NoError(t, err)
	for _, id := range []string{"acc-alice", "acc-bob"} {
		_, err = env.scrims.ToggleReady(ctx, scrim.ID, id)
		require.NoError(t, err)
	}

	_, err = env.scrims.SetTrackerSession(ctx, scrim.ID, "acc-alice", "sess-1")
	require.NoError(t, err)
	finishAndScore(t, env, scrim.ID, 13, 7)

	history, err := env.rating.HistoryForScrim(ctx, scrim.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestClaimGameNameFirstClaimWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	claimed, err := env.scrims.ClaimGameName(ctx, "acc-alice", "ShadowStrike")
	require.NoError(t, err)
	assert.Equal(t, "shadowstrike", claimed.NameKey)

	// Same name in a different case is the same key.
	_, err = env.scrims.ClaimGameName(ctx, "acc-bob", "SHADOWSTRIKE")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = env.scrims.ClaimGameName(ctx, "acc-alice", "  ")
	assert.ErrorIs(t, err, domain.ErrConflict)
}
