package historystore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mvr-docstatus/lib/historystore/db"
	"mvr-docstatus/lib/scrapers/mvr"
	"mvr-docstatus/lib/textutil"
	"mvr-docstatus/lib/timezone"

	"github.com/google/uuid"
)

// digits of the ЕГН that stay readable in the history
const visibleSubjectDigits = 4

type Store struct {
	db  *sql.DB
	qry *db.Queries
	// KeepRawHTML stores the response body of every attempt, not just the
	// ones that failed to parse.
	KeepRawHTML bool
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Migrate creates the tables if they don't exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

type Entry struct {
	ID         string
	RunID      string
	Attempt    int
	SubjectID  string
	LastName   string
	Captcha    string
	Outcome    string
	StatusText string
	Error      string
	RawHTML    string
	Time       time.Time
}

// Record stores a single query attempt, the subject id is masked before it
// touches the database.
func (s Store) Record(ctx context.Context, subjectID, lastName string, attempt mvr.Attempt) error {
	errText := ""
	if attempt.Err != nil {
		errText = attempt.Err.Error()
	}
	rawHtml := ""
	if s.KeepRawHTML || attempt.Outcome == mvr.OutcomeFailed {
		rawHtml = attempt.Result.RawHTML
	}
	at := attempt.At
	if at.IsZero() {
		at = timezone.Now()
	}

	err := s.qry.CreateAttempt(ctx, db.CreateAttemptParams{
		ID:           uuid.NewString(),
		RunID:        attempt.RunID,
		Attempt:      int64(attempt.Number),
		SubjectID:    textutil.Mask(subjectID, visibleSubjectDigits),
		LastName:     lastName,
		CaptchaGuess: attempt.Captcha,
		Outcome:      attempt.Outcome.String(),
		StatusText:   attempt.Result.StatusText,
		Error:        errText,
		RawHtml:      rawHtml,
		CreatedAt:    at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("historystore: record attempt: %w", err)
	}
	return nil
}

// Recent returns the latest `limit` attempts, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.qry.GetRecentAttempts(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("historystore: recent attempts: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			ID:         r.ID,
			RunID:      r.RunID,
			Attempt:    int(r.Attempt),
			SubjectID:  r.SubjectID,
			LastName:   r.LastName,
			Captcha:    r.CaptchaGuess,
			Outcome:    r.Outcome,
			StatusText: r.StatusText,
			Error:      r.Error,
			Time:       time.UnixMilli(r.CreatedAt).In(timezone.Location),
		}
	}
	return entries, nil
}

// Run returns every attempt of a single query run in order, raw HTML included.
func (s Store) Run(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.qry.GetRunAttempts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("historystore: run attempts: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			ID:         r.ID,
			RunID:      r.RunID,
			Attempt:    int(r.Attempt),
			SubjectID:  r.SubjectID,
			LastName:   r.LastName,
			Captcha:    r.CaptchaGuess,
			Outcome:    r.Outcome,
			StatusText: r.StatusText,
			Error:      r.Error,
			RawHTML:    r.RawHtml,
			Time:       time.UnixMilli(r.CreatedAt).In(timezone.Location),
		}
	}
	return entries, nil
}

// Prune deletes attempts older than `before` and returns how many went.
func (s Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	count, err := s.qry.DeleteAttemptsBefore(ctx, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("historystore: prune: %w", err)
	}
	return count, nil
}
