package fx

import (
	"database/sql"
	"scrimhub/internal/api"
	"scrimhub/internal/config"
	"scrimhub/internal/constants"
	"scrimhub/internal/database"
	"scrimhub/internal/db"
	"scrimhub/internal/logger"
	"scrimhub/internal/repository"
	"scrimhub/internal/server"
	"scrimhub/internal/service"
	"scrimhub/internal/worker"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideTelemetry(client *api.TrackerClient) service.Telemetry {
	return client
}

func ProvideSweeper(pool *workerpool.WorkerPool, scrimRepo *repository.ScrimRepository, rating *service.RatingService, cfg *config.Config, log zerolog.Logger) *worker.Sweeper {
	return worker.NewSweeper(pool, scrimRepo, rating, cfg.SweepInterval, log)
}

func ProvideWorkerPool() *workerpool.WorkerPool {
	return workerpool.New(constants.SweepWorkers)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewScrimRepository),
	fx.Provide(repository.NewGameNameRepository),
	fx.Provide(repository.NewEloRepository),
	// api client
	fx.Provide(api.NewTrackerClient),
	fx.Provide(ProvideTelemetry),
	// svc
	fx.Provide(service.NewIdentityResolver),
	fx.Provide(service.NewRatingService),
	fx.Provide(service.NewScrimService),
	// server
	fx.Provide(server.NewScrimServer),
	// background sweeper
	fx.Provide(ProvideWorkerPool),
	fx.Provide(ProvideSweeper),
)
