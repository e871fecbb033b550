package db

import (
	"context"
	"time"
)

const scrimColumns = `id, creator_id, creator_name, title, map,
	min_players_per_team, max_players_per_team, status,
	team_a_score, team_b_score, winner, tracker_session_id, is_ranked,
	ranked_processed_at, expires_at, started_at, finished_at, finalized_at,
	created_at, updated_at`

func scanScrim(row interface{ Scan(...interface{}) error }) (Scrim, error) {
	var s Scrim
	err := row.Scan(
		&s.ID, &s.CreatorID, &s.CreatorName, &s.Title, &s.Map,
		&s.MinPlayersPerTeam, &s.MaxPlayersPerTeam, &s.Status,
		&s.TeamAScore, &s.TeamBScore, &s.Winner, &s.TrackerSessionID, &s.IsRanked,
		&s.RankedProcessedAt, &s.ExpiresAt, &s.StartedAt, &s.FinishedAt, &s.FinalizedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

type CreateScrimParams struct {
	ID                string
	CreatorID         string
	CreatorName       string
	Title             string
	Map               string
	MinPlayersPerTeam int64
	MaxPlayersPerTeam int64
	Status            string
	IsRanked          bool
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (q *Queries) CreateScrim(ctx context.Context, arg CreateScrimParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrims (
			id, creator_id, creator_name, title, map,
			min_players_per_team, max_players_per_team, status, is_ranked,
			expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.CreatorID, arg.CreatorName, arg.Title, arg.Map,
		arg.MinPlayersPerTeam, arg.MaxPlayersPerTeam, arg.Status, arg.IsRanked,
		arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) GetScrim(ctx context.Context, id string) (Scrim, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+scrimColumns+` FROM scrims WHERE id = ?`, id)
	return scanScrim(row)
}

type ListScrimsByStatusParams struct {
	Status string
	Limit  int64
}

func (q *Queries) ListScrimsByStatus(ctx context.Context, arg ListScrimsByStatusParams) ([]Scrim, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+scrimColumns+` FROM scrims
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?`, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Scrim
	for rows.Next() {
		s, err := scanScrim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListUnprocessedRanked returns finalized ranked scrims with a linked
// telemetry session whose rating has not been applied yet.
func (q *Queries) ListUnprocessedRanked(ctx context.Context, limit int64) ([]Scrim, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+scrimColumns+` FROM scrims
		WHERE status = 'finalized'
		  AND is_ranked = 1
		  AND ranked_processed_at IS NULL
		  AND tracker_session_id != ''
		  AND team_a_score IS NOT NULL
		  AND team_b_score IS NOT NULL
		ORDER BY finalized_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Scrim
	for rows.Next() {
		s, err := scanScrim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type StartScrimParams struct {
	StartedAt time.Time
	UpdatedAt time.Time
	ID        string
}

// StartScrim is the guarded waiting -> in_progress transition. The rows
// affected count tells the caller whether it won the transition.
func (q *Queries) StartScrim(ctx context.Context, arg StartScrimParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET status = 'in_progress', started_at = ?, updated_at = ?
		WHERE id = ? AND status = 'waiting'`,
		arg.StartedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type FinishScrimParams struct {
	FinishedAt time.Time
	UpdatedAt  time.Time
	ID         string
}

func (q *Queries) FinishScrim(ctx context.Context, arg FinishScrimParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET status = 'scoring', finished_at = ?, updated_at = ?
		WHERE id = ? AND status = 'in_progress'`,
		arg.FinishedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type FinalizeScrimParams struct {
	TeamAScore  int64
	TeamBScore  int64
	Winner      string
	FinalizedAt time.Time
	UpdatedAt   time.Time
	ID          string
}

func (q *Queries) FinalizeScrim(ctx context.Context, arg FinalizeScrimParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET status = 'finalized', team_a_score = ?, team_b_score = ?,
			winner = ?, finalized_at = ?, updated_at = ?
		WHERE id = ? AND status = 'scoring'`,
		arg.TeamAScore, arg.TeamBScore, arg.Winner, arg.FinalizedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type CancelScrimParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) CancelScrim(ctx context.Context, arg CancelScrimParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET status = 'cancelled', updated_at = ?
		WHERE id = ? AND status IN ('waiting', 'ready_check')`,
		arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ExpireStaleScrimsParams struct {
	Now       time.Time
	UpdatedAt time.Time
}

// ExpireStaleScrims is a single conditional bulk update so it cannot race
// with concurrent join or ready operations.
func (q *Queries) ExpireStaleScrims(ctx context.Context, arg ExpireStaleScrimsParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET status = 'expired', updated_at = ?
		WHERE status = 'waiting' AND expires_at < ?`,
		arg.UpdatedAt, arg.Now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type SetTrackerSessionParams struct {
	TrackerSessionID string
	UpdatedAt        time.Time
	ID               string
}

func (q *Queries) SetTrackerSession(ctx context.Context, arg SetTrackerSessionParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET tracker_session_id = ?, updated_at = ? WHERE id = ?`,
		arg.TrackerSessionID, arg.UpdatedAt, arg.ID)
	return err
}

type MarkRankedProcessedParams struct {
	ProcessedAt time.Time
	UpdatedAt   time.Time
	ID          string
}

// MarkRankedProcessed sets the rating idempotency marker. It only succeeds
// once per scrim and only after finalization.
func (q *Queries) MarkRankedProcessed(ctx context.Context, arg MarkRankedProcessedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET ranked_processed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'finalized' AND ranked_processed_at IS NULL`,
		arg.ProcessedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ClearRankedProcessedParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) ClearRankedProcessed(ctx context.Context, arg ClearRankedProcessedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrims SET ranked_processed_at = NULL, updated_at = ? WHERE id = ?`,
		arg.UpdatedAt, arg.ID)
	return err
}
