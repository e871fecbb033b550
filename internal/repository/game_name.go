package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"scrimhub/internal/db"
	"scrimhub/internal/domain"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type GameNameRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewGameNameRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *GameNameRepository {
	return &GameNameRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Claim registers an alias for an account. The lowercased name is globally
// unique and the first claim wins.
func (r *GameNameRepository) Claim(ctx context.Context, accountID, gameName string) (*domain.UserGameName, error) {
	alias := &domain.UserGameName{
		AccountID: accountID,
		GameName:  gameName,
		NameKey:   strings.ToLower(gameName),
		CreatedAt: time.Now(),
	}

	err := r.queries.InsertUserGameName(ctx, db.InsertUserGameNameParams{
		NameKey:   alias.NameKey,
		GameName:  alias.GameName,
		AccountID: alias.AccountID,
		CreatedAt: alias.CreatedAt,
	})
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			r.logger.Debug().Str("name_key", alias.NameKey).Msg("game name already claimed")
			return nil, fmt.Errorf("game name %q: %w", gameName, domain.ErrConflict)
		}
		return nil, err
	}

	return alias, nil
}

func (r *GameNameRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.UserGameName, error) {
	rows, err := r.queries.ListGameNamesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.UserGameName, len(rows))
	for i, row := range rows {
		result[i] = domain.UserGameName{
			AccountID: row.AccountID,
			GameName:  row.GameName,
			NameKey:   row.NameKey,
			CreatedAt: row.CreatedAt,
		}
	}
	return result, nil
}
