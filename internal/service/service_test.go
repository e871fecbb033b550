package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"scrimhub/internal/api"
	"scrimhub/internal/config"
	"scrimhub/internal/database"
	"scrimhub/internal/db"
	"scrimhub/internal/domain"
	"scrimhub/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// stubTelemetry serves canned session responses in place of the external
// tracker service.
type stubTelemetry struct {
	sessions map[string]*api.SessionResponse
	err      error
}

func (s *stubTelemetry) GetSession(_ context.Context, sessionID string) (*api.SessionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrTelemetryUnavailable
	}
	return resp, nil
}

func sessionOf(players ...api.SessionPlayer) *api.SessionResponse {
	return &api.SessionResponse{
		Status: 200,
		Data:   api.SessionData{Players: players},
	}
}

type testEnv struct {
	db        *sql.DB
	telemetry *stubTelemetry
	scrimRepo *repository.ScrimRepository
	eloRepo   *repository.EloRepository
	gameNames *repository.GameNameRepository
	scrims    *ScrimService
	rating    *RatingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	// Named shared-cache memory DB so every pooled connection sees the
	// same database; a plain :memory: DSN gives each connection its own.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqlDB, err := database.Open(dsn, log)
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	queries := db.New(sqlDB)
	scrimRepo := repository.NewScrimRepository(sqlDB, queries, log)
	eloRepo := repository.NewEloRepository(sqlDB, queries, log)
	gameNames := repository.NewGameNameRepository(sqlDB, queries, log)

	telemetry := &stubTelemetry{sessions: map[string]*api.SessionResponse{}}
	resolver := NewIdentityResolver(telemetry, gameNames, log)

	cfg := &config.Config{AdminAccountID: "admin-1"}
	rating := NewRatingService(scrimRepo, eloRepo, resolver, cfg, log)
	scrims := NewScrimService(scrimRepo, gameNames, rating, log)

	return &testEnv{
		db:        sqlDB,
		telemetry: telemetry,
		scrimRepo: scrimRepo,
		eloRepo:   eloRepo,
		gameNames: gameNames,
		scrims:    scrims,
		rating:    rating,
	}
}

// fourPlayerScrim creates a 2v2 scrim, joins alice, bob, cara and dan and
// readies everyone, leaving the scrim in progress with teams assigned.
func fourPlayerScrim(t *testing.T, env *testEnv) *domain.Scrim {
	t.Helper()
	ctx := context.Background()

	scrim, err := env.scrims.Create(ctx, "acc-alice", "Alice", CreateOptions{
		Title:             "tuesday 2v2",
		MinPlayersPerTeam: 2,
		MaxPlayersPerTeam: 2,
	})
	require.NoError(t, err)

	for _, p := range []struct{ id, name string }{
		{"acc-bob", "Bob"}, {"acc-cara", "Cara"}, {"acc-dan", "Dan"},
	} {
		_, err := env.scrims.Join(ctx, scrim.ID, p.id, p.name)
		require.NoError(t, err)
	}

	for _, id := range []string{"acc-alice", "acc-bob", "acc-cara", "acc-dan"} {
		_, err := env.scrims.ToggleReady(ctx, scrim.ID, id)
		require.NoError(t, err)
	}

	started, err := env.scrimRepo.Get(ctx, scrim.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, started.Status)
	return started
}

// finishAndScore drives an in-progress scrim to finalized with the given
// score via two agreeing submissions.
func finishAndScore(t *testing.T, env *testEnv, scrimID string, teamA, teamB int) {
	t.Helper()
	ctx := context.Background()

	_, err := env.scrims.EndGame(ctx, scrimID, "acc-alice")
	require.NoError(t, err)
	_, err = env.scrims.SubmitScore(ctx, scrimID, "acc-alice", "Alice", teamA, teamB)
	require.NoError(t, err)
	_, err = env.scrims.SubmitScore(ctx, scrimID, "acc-bob", "Bob", teamA, teamB)
	require.NoError(t, err)
}
