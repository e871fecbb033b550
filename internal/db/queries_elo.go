package db

import (
	"context"
	"time"
)

type InsertUserGameNameParams struct {
	NameKey   string
	GameName  string
	AccountID string
	CreatedAt time.Time
}

// InsertUserGameName fails on the primary key when the lowercased name is
// already claimed; first claim wins.
func (q *Queries) InsertUserGameName(ctx context.Context, arg InsertUserGameNameParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO user_game_names (name_key, game_name, account_id, created_at)
		VALUES (?, ?, ?, ?)`,
		arg.NameKey, arg.GameName, arg.AccountID, arg.CreatedAt)
	return err
}

func (q *Queries) ListGameNamesByAccount(ctx context.Context, accountID string) ([]UserGameName, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT name_key, game_name, account_id, created_at
		FROM user_game_names
		WHERE account_id = ?
		ORDER BY created_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []UserGameName
	for rows.Next() {
		var n UserGameName
		if err := rows.Scan(&n.NameKey, &n.GameName, &n.AccountID, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const playerEloColumns = `name_key, display_name, elo, games_played, wins, losses, draws, created_at, updated_at`

func (q *Queries) GetPlayerElo(ctx context.Context, nameKey string) (PlayerElo, error) {
	var p PlayerElo
	err := q.db.QueryRowContext(ctx, `
		SELECT `+playerEloColumns+` FROM player_elo WHERE name_key = ?`, nameKey).
		Scan(&p.NameKey, &p.DisplayName, &p.Elo, &p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
			&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type UpsertPlayerEloParams struct {
	NameKey     string
	DisplayName string
	Elo         int64
	GamesPlayed int64
	Wins        int64
	Losses      int64
	Draws       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) UpsertPlayerElo(ctx context.Context, arg UpsertPlayerEloParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO player_elo (
			name_key, display_name, elo, games_played, wins, losses, draws, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name_key) DO UPDATE SET
			display_name = excluded.display_name,
			elo = excluded.elo,
			games_played = excluded.games_played,
			wins = excluded.wins,
			losses = excluded.losses,
			draws = excluded.draws,
			updated_at = excluded.updated_at`,
		arg.NameKey, arg.DisplayName, arg.Elo, arg.GamesPlayed, arg.Wins, arg.Losses, arg.Draws,
		arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) ListLeaderboard(ctx context.Context, limit int64) ([]PlayerElo, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+playerEloColumns+` FROM player_elo
		WHERE games_played > 0
		ORDER BY elo DESC, games_played DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PlayerElo
	for rows.Next() {
		var p PlayerElo
		if err := rows.Scan(&p.NameKey, &p.DisplayName, &p.Elo, &p.GamesPlayed,
			&p.Wins, &p.Losses, &p.Draws, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type InsertEloHistoryParams struct {
	ID            string
	NameKey       string
	ScrimID       string
	EloBefore     int64
	EloAfter      int64
	EloChange     int64
	Result        string
	Team          string
	TeamScore     int64
	OpponentScore int64
	Kills         int64
	Deaths        int64
	KFactor       int64
	CreatedAt     time.Time
}

func (q *Queries) InsertEloHistory(ctx context.Context, arg InsertEloHistoryParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO elo_history (
			id, name_key, scrim_id, elo_before, elo_after, elo_change,
			result, team, team_score, opponent_score, kills, deaths, k_factor, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.NameKey, arg.ScrimID, arg.EloBefore, arg.EloAfter, arg.EloChange,
		arg.Result, arg.Team, arg.TeamScore, arg.OpponentScore, arg.Kills, arg.Deaths,
		arg.KFactor, arg.CreatedAt,
	)
	return err
}

const eloHistoryColumns = `id, name_key, scrim_id, elo_before, elo_after, elo_change,
	result, team, team_score, opponent_score, kills, deaths, k_factor, created_at`

func (q *Queries) ListEloHistoryByScrim(ctx context.Context, scrimID string) ([]EloHistory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+eloHistoryColumns+` FROM elo_history
		WHERE scrim_id = ?
		ORDER BY created_at ASC`, scrimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EloHistory
	for rows.Next() {
		var h EloHistory
		if err := rows.Scan(&h.ID, &h.NameKey, &h.ScrimID, &h.EloBefore, &h.EloAfter,
			&h.EloChange, &h.Result, &h.Team, &h.TeamScore, &h.OpponentScore,
			&h.Kills, &h.Deaths, &h.KFactor, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (q *Queries) CountEloHistoryByScrim(ctx context.Context, scrimID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM elo_history WHERE scrim_id = ?`, scrimID).Scan(&count)
	return count, err
}

func (q *Queries) DeleteEloHistoryByScrim(ctx context.Context, scrimID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM elo_history WHERE scrim_id = ?`, scrimID)
	return err
}

func (q *Queries) ListEloHistoryByName(ctx context.Context, arg ListEloHistoryByNameParams) ([]EloHistory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+eloHistoryColumns+` FROM elo_history
		WHERE name_key = ?
		ORDER BY created_at DESC
		LIMIT ?`, arg.NameKey, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EloHistory
	for rows.Next() {
		var h EloHistory
		if err := rows.Scan(&h.ID, &h.NameKey, &h.ScrimID, &h.EloBefore, &h.EloAfter,
			&h.EloChange, &h.Result, &h.Team, &h.TeamScore, &h.OpponentScore,
			&h.Kills, &h.Deaths, &h.KFactor, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

type ListEloHistoryByNameParams struct {
	NameKey string
	Limit   int64
}
