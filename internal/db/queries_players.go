package db

import (
	"context"
	"time"
)

const scrimPlayerColumns = `scrim_id, account_id, display_name, is_ready,
	ready_at, team, voted_reroll, created_at, updated_at`

func scanScrimPlayer(row interface{ Scan(...interface{}) error }) (ScrimPlayer, error) {
	var p ScrimPlayer
	err := row.Scan(
		&p.ScrimID, &p.AccountID, &p.DisplayName, &p.IsReady,
		&p.ReadyAt, &p.Team, &p.VotedReroll, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

type UpsertScrimPlayerParams struct {
	ScrimID     string
	AccountID   string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertScrimPlayer makes join idempotent: re-joining refreshes the display
// name without duplicating the membership row.
func (q *Queries) UpsertScrimPlayer(ctx context.Context, arg UpsertScrimPlayerParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrim_players (scrim_id, account_id, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scrim_id, account_id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		arg.ScrimID, arg.AccountID, arg.DisplayName, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

type DeleteScrimPlayerParams struct {
	ScrimID   string
	AccountID string
}

func (q *Queries) DeleteScrimPlayer(ctx context.Context, arg DeleteScrimPlayerParams) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM scrim_players WHERE scrim_id = ? AND account_id = ?`,
		arg.ScrimID, arg.AccountID)
	return err
}

func (q *Queries) ListScrimPlayers(ctx context.Context, scrimID string) ([]ScrimPlayer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+scrimPlayerColumns+` FROM scrim_players
		WHERE scrim_id = ?
		ORDER BY created_at ASC`, scrimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ScrimPlayer
	for rows.Next() {
		p, err := scanScrimPlayer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type GetScrimPlayerParams struct {
	ScrimID   string
	AccountID string
}

func (q *Queries) GetScrimPlayer(ctx context.Context, arg GetScrimPlayerParams) (ScrimPlayer, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+scrimPlayerColumns+` FROM scrim_players
		WHERE scrim_id = ? AND account_id = ?`, arg.ScrimID, arg.AccountID)
	return scanScrimPlayer(row)
}

func (q *Queries) CountScrimPlayers(ctx context.Context, scrimID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scrim_players WHERE scrim_id = ?`, scrimID).Scan(&count)
	return count, err
}

type SetPlayerReadyParams struct {
	IsReady   bool
	ReadyAt   *time.Time
	UpdatedAt time.Time
	ScrimID   string
	AccountID string
}

func (q *Queries) SetPlayerReady(ctx context.Context, arg SetPlayerReadyParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrim_players SET is_ready = ?, ready_at = ?, updated_at = ?
		WHERE scrim_id = ? AND account_id = ?`,
		arg.IsReady, arg.ReadyAt, arg.UpdatedAt, arg.ScrimID, arg.AccountID)
	return err
}

type SetPlayerTeamParams struct {
	Team      string
	UpdatedAt time.Time
	ScrimID   string
	AccountID string
}

func (q *Queries) SetPlayerTeam(ctx context.Context, arg SetPlayerTeamParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrim_players SET team = ?, updated_at = ?
		WHERE scrim_id = ? AND account_id = ?`,
		arg.Team, arg.UpdatedAt, arg.ScrimID, arg.AccountID)
	return err
}

type SetPlayerRerollVoteParams struct {
	VotedReroll bool
	UpdatedAt   time.Time
	ScrimID     string
	AccountID   string
}

func (q *Queries) SetPlayerRerollVote(ctx context.Context, arg SetPlayerRerollVoteParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrim_players SET voted_reroll = ?, updated_at = ?
		WHERE scrim_id = ? AND account_id = ?`,
		arg.VotedReroll, arg.UpdatedAt, arg.ScrimID, arg.AccountID)
	return err
}

type ClearRerollVotesParams struct {
	UpdatedAt time.Time
	ScrimID   string
}

func (q *Queries) ClearRerollVotes(ctx context.Context, arg ClearRerollVotesParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrim_players SET voted_reroll = 0, updated_at = ?
		WHERE scrim_id = ?`, arg.UpdatedAt, arg.ScrimID)
	return err
}

func (q *Queries) CountRerollVotes(ctx context.Context, scrimID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scrim_players
		WHERE scrim_id = ? AND voted_reroll = 1 AND team IS NOT NULL`, scrimID).Scan(&count)
	return count, err
}

func (q *Queries) CountAssignedPlayers(ctx context.Context, scrimID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scrim_players
		WHERE scrim_id = ? AND team IS NOT NULL`, scrimID).Scan(&count)
	return count, err
}

type UpsertScoreSubmissionParams struct {
	ScrimID     string
	AccountID   string
	DisplayName string
	TeamAScore  int64
	TeamBScore  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) UpsertScoreSubmission(ctx context.Context, arg UpsertScoreSubmissionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrim_score_submissions (
			scrim_id, account_id, display_name, team_a_score, team_b_score, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scrim_id, account_id) DO UPDATE SET
			display_name = excluded.display_name,
			team_a_score = excluded.team_a_score,
			team_b_score = excluded.team_b_score,
			updated_at = excluded.updated_at`,
		arg.ScrimID, arg.AccountID, arg.DisplayName, arg.TeamAScore, arg.TeamBScore,
		arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) ListScoreSubmissions(ctx context.Context, scrimID string) ([]ScrimScoreSubmission, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT scrim_id, account_id, display_name, team_a_score, team_b_score, created_at, updated_at
		FROM scrim_score_submissions
		WHERE scrim_id = ?
		ORDER BY created_at ASC`, scrimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ScrimScoreSubmission
	for rows.Next() {
		var s ScrimScoreSubmission
		if err := rows.Scan(&s.ScrimID, &s.AccountID, &s.DisplayName,
			&s.TeamAScore, &s.TeamBScore, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
