package db

import (
	"context"
)

type QueryAttempt struct {
	ID           string
	RunID        string
	Attempt      int64
	SubjectID    string
	LastName     string
	CaptchaGuess string
	Outcome      string
	StatusText   string
	Error        string
	RawHtml      string
	CreatedAt    int64
}

const createAttempt = `-- name: CreateAttempt :exec
insert into query_attempt (
    id, run_id, attempt, subject_id, last_name, captcha_guess,
    outcome, status_text, error, raw_html, created_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateAttemptParams struct {
	ID           string
	RunID        string
	Attempt      int64
	SubjectID    string
	LastName     string
	CaptchaGuess string
	Outcome      string
	StatusText   string
	Error        string
	RawHtml      string
	CreatedAt    int64
}

func (q *Queries) CreateAttempt(ctx context.Context, arg CreateAttemptParams) error {
	_, err := q.db.ExecContext(ctx, createAttempt,
		arg.ID,
		arg.RunID,
		arg.Attempt,
		arg.SubjectID,
		arg.LastName,
		arg.CaptchaGuess,
		arg.Outcome,
		arg.StatusText,
		arg.Error,
		arg.RawHtml,
		arg.CreatedAt,
	)
	return err
}

const getRecentAttempts = `-- name: GetRecentAttempts :many
select id, run_id, attempt, subject_id, last_name, captcha_guess,
    outcome, status_text, error, created_at
from query_attempt
order by created_at desc, attempt desc
limit ?
`

type GetRecentAttemptsRow struct {
	ID           string
	RunID        string
	Attempt      int64
	SubjectID    string
	LastName     string
	CaptchaGuess string
	Outcome      string
	StatusText   string
	Error        string
	CreatedAt    int64
}

func (q *Queries) GetRecentAttempts(ctx context.Context, limit int64) ([]GetRecentAttemptsRow, error) {
	rows, err := q.db.QueryContext(ctx, getRecentAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetRecentAttemptsRow
	for rows.Next() {
		var i GetRecentAttemptsRow
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Attempt,
			&i.SubjectID,
			&i.LastName,
			&i.CaptchaGuess,
			&i.Outcome,
			&i.StatusText,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRunAttempts = `-- name: GetRunAttempts :many
select id, run_id, attempt, subject_id, last_name, captcha_guess,
    outcome, status_text, error, raw_html, created_at
from query_attempt
where run_id = ?
order by attempt asc
`

func (q *Queries) GetRunAttempts(ctx context.Context, runID string) ([]QueryAttempt, error) {
	rows, err := q.db.QueryContext(ctx, getRunAttempts, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QueryAttempt
	for rows.Next() {
		var i QueryAttempt
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Attempt,
			&i.SubjectID,
			&i.LastName,
			&i.CaptchaGuess,
			&i.Outcome,
			&i.StatusText,
			&i.Error,
			&i.RawHtml,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAttemptsBefore = `-- name: DeleteAttemptsBefore :execrows
delete from query_attempt where created_at < ?
`

func (q *Queries) DeleteAttemptsBefore(ctx context.Context, createdAt int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAttemptsBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
