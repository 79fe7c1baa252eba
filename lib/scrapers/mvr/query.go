package mvr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mvr-docstatus/lib/captcha"
	"mvr-docstatus/lib/textutil"
	"mvr-docstatus/lib/timezone"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type QueryOptions struct {
	// Solver answers each challenge. a captcha.Preset makes exactly one
	// attempt without fetching a challenge.
	Solver captcha.Solver
	// MaxRetries overrides Config.MaxRetries when set.
	MaxRetries *int
	// Delay overrides Config.RetryDelayMillis when positive.
	Delay time.Duration
	// OnAttempt is called after every attempt, successful or not.
	OnAttempt func(Attempt)
}

// Attempt describes one fetch-solve-submit round of a Query.
type Attempt struct {
	RunID   string
	Number  int
	Captcha string
	Outcome Outcome
	Result  QueryResult
	Err     error
	At      time.Time
}

// Query looks up the document status of `subjectID` (an ЕГН) and `lastName`,
// fetching a new challenge each time the site rejects the CAPTCHA.
func (c *Client) Query(ctx context.Context, subjectID, lastName string, opts QueryOptions) (QueryResult, error) {
	ctx, span := tracer.Start(ctx, "client:Query")
	defer span.End()

	err := validateSubject(subjectID, lastName)
	if err != nil {
		span.SetStatus(codes.Error, "invalid subject")
		return QueryResult{}, err
	}
	if opts.Solver == nil {
		return QueryResult{}, fmt.Errorf("%w: no captcha solver given", ErrInvalidRequest)
	}

	maxRetries := c.config.MaxRetries
	if opts.MaxRetries != nil {
		maxRetries = *opts.MaxRetries
	}
	if maxRetries < 0 {
		return QueryResult{}, fmt.Errorf("%w: max retries must not be negative", ErrInvalidRequest)
	}
	delay := c.config.retryDelay()
	if opts.Delay > 0 {
		delay = opts.Delay
	}

	if !ValidEGNChecksum(subjectID) {
		c.tel.ReportWarning(
			report_client_query,
			fmt.Errorf("subject id fails the ЕГН checksum, the site will most likely reject it"),
		)
	}
	if !textutil.IsCyrillic(lastName) {
		c.tel.ReportWarning(
			report_client_query,
			fmt.Errorf("last name contains non-cyrillic letters, the site expects it in cyrillic"),
		)
	}

	runID := uuid.NewString()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("max_retries", maxRetries),
	)

	session, err := c.NewSession()
	if err != nil {
		return QueryResult{}, fmt.Errorf("mvr: create session: %w", err)
	}

	q := queryRun{
		client:    c,
		session:   session,
		runID:     runID,
		subjectID: subjectID,
		lastName:  lastName,
		opts:      opts,
	}

	if preset, ok := opts.Solver.(captcha.Preset); ok {
		res, rejected, err := q.finish(ctx, q.submit(ctx, 1, string(preset)))
		if rejected {
			err = &CaptchaExhaustedError{Attempts: 1, LastStatus: res.StatusText}
			res = QueryResult{}
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return res, err
	}

	lastStatus := ""
	totalAttempts := maxRetries + 1
	for n := 1; n <= totalAttempts; n++ {
		if n > 1 && delay > 0 {
			select {
			case <-ctx.Done():
				return QueryResult{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		if ctx.Err() != nil {
			return QueryResult{}, ctx.Err()
		}

		res, retry, err := q.finish(ctx, q.attempt(ctx, n))
		if !retry {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		}
		lastStatus = res.StatusText
		c.tel.ReportDebug("captcha rejected", n, totalAttempts)
	}

	span.SetStatus(codes.Error, "captcha retries exhausted")
	c.tel.ReportWarning(
		report_client_query_attempts,
		fmt.Errorf("captcha not accepted after %d attempt(s)", totalAttempts),
	)
	return QueryResult{}, &CaptchaExhaustedError{
		Attempts:   totalAttempts,
		LastStatus: lastStatus,
	}
}

type queryRun struct {
	client    *Client
	session   *Session
	runID     string
	subjectID string
	lastName  string
	opts      QueryOptions
}

func (q queryRun) attempt(ctx context.Context, n int) Attempt {
	ctx, span := tracer.Start(ctx, "client:QueryAttempt")
	defer span.End()
	span.SetAttributes(attribute.Int("attempt", n))

	err := q.session.ClearCookies()
	if err != nil {
		return q.failed(n, "", QueryResult{}, fmt.Errorf("mvr: reset cookies: %w", err))
	}

	challenge, err := q.client.FetchChallenge(ctx, q.session)
	if err != nil {
		return q.failed(n, "", QueryResult{}, err)
	}

	answer, err := q.client.SolveChallenge(ctx, challenge, q.opts.Solver)
	if errors.Is(err, captcha.ErrNoSolution) {
		return Attempt{
			RunID:   q.runID,
			Number:  n,
			Outcome: OutcomeCaptchaRejected,
			Err:     err,
			At:      timezone.Now(),
		}
	}
	if err != nil {
		return q.failed(n, "", QueryResult{}, fmt.Errorf("mvr: solve captcha: %w", err))
	}

	return q.submit(ctx, n, answer)
}

func (q queryRun) submit(ctx context.Context, n int, answer string) Attempt {
	res, err := q.client.SubmitQuery(ctx, q.session, QueryRequest{
		DocumentType: q.client.config.DocumentType,
		SubjectID:    q.subjectID,
		LastName:     q.lastName,
		Captcha:      answer,
		Submitted:    "1",
	})
	if err != nil {
		return q.failed(n, answer, res, err)
	}
	return Attempt{
		RunID:   q.runID,
		Number:  n,
		Captcha: answer,
		Outcome: Classify(res.StatusText),
		Result:  res,
		At:      timezone.Now(),
	}
}

func (q queryRun) failed(n int, answer string, res QueryResult, err error) Attempt {
	return Attempt{
		RunID:   q.runID,
		Number:  n,
		Captcha: answer,
		Outcome: OutcomeFailed,
		Result:  res,
		Err:     err,
		At:      timezone.Now(),
	}
}

// finish reports the attempt and decides what Query does next, retry is
// true only when another attempt may succeed.
func (q queryRun) finish(ctx context.Context, a Attempt) (res QueryResult, retry bool, err error) {
	a.Result.Attempts = a.Number
	attemptCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", a.Outcome.String()),
	))
	if q.opts.OnAttempt != nil {
		q.opts.OnAttempt(a)
	}

	switch {
	case a.Outcome.Retry():
		return a.Result, true, nil
	case a.Err != nil:
		return a.Result, false, a.Err
	case a.Outcome == OutcomeServiceError:
		q.client.tel.ReportWarning(report_client_query, fmt.Errorf("service error: %s", a.Result.StatusText))
		return a.Result, false, &ServiceError{Message: a.Result.StatusText}
	}
	q.client.tel.ReportCount(report_client_query_attempts, int64(a.Number))
	return a.Result, false, nil
}
