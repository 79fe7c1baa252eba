package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mvr-docstatus/lib/captcha"
	"mvr-docstatus/lib/historystore"
	"mvr-docstatus/lib/notify"
	"mvr-docstatus/lib/restyutil"
	"mvr-docstatus/lib/scrapers/mvr"
	"mvr-docstatus/lib/statepath"
	"mvr-docstatus/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	manual   bool
	retries  int
	preset   string
	delay    time.Duration
	dumpHttp string
	history  bool
	notify   bool
	raw      bool
}

var flags queryFlags

func registerQueryFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flags.manual, "manual", false, "Show the CAPTCHA and type it in instead of using OCR.")
	cmd.Flags().IntVar(&flags.retries, "retries", mvr.DefaultMaxRetries, "How many times to retry with a new CAPTCHA after a rejected one.")
	cmd.Flags().StringVar(&flags.preset, "captcha", "", "Submit this CAPTCHA text as is, a single attempt without fetching a challenge.")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "How long to wait between attempts.")
	cmd.Flags().StringVar(&flags.dumpHttp, "dump-http", "", "Write every HTTP exchange to this directory (may start with <state>).")
	cmd.Flags().BoolVar(&flags.history, "history", false, "Record every attempt in the history database.")
	cmd.Flags().BoolVar(&flags.notify, "notify", false, "Email the result using the notify section of the config.")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "Print the raw HTML of the result page instead of the status.")
}

// selectSolver picks how CAPTCHAs get answered: a preset beats --manual
// which beats OCR, without an OCR key it falls back to manual entry.
func selectSolver(f queryFlags, config Config, in io.Reader, out io.Writer) (captcha.Solver, error) {
	if f.preset != "" {
		return captcha.Preset(f.preset), nil
	}

	manual := func() (captcha.Solver, error) {
		dir, err := statepath.Resolve(config.CaptchaDir)
		if err != nil {
			return nil, err
		}
		m := captcha.NewManual(in, out)
		m.Dir = dir
		m.OpenViewer = true
		return m, nil
	}
	if f.manual {
		return manual()
	}

	if config.Ocr.ApiKey == "" {
		slog.Warn("no OCR api key configured (set ocr.api_key or OPENAI_API_KEY), falling back to manual entry")
		return manual()
	}
	recognizer, err := captcha.NewOpenAIRecognizer(config.Ocr)
	if err != nil {
		return nil, err
	}
	return captcha.Automatic{Recognizer: recognizer}, nil
}

// describeFailure turns a query error into the line shown before exiting.
func describeFailure(err error) string {
	var (
		exhausted  *mvr.CaptchaExhaustedError
		parseErr   *mvr.ParseError
		networkErr *mvr.NetworkError
		serviceErr *mvr.ServiceError
	)
	switch {
	case errors.Is(err, mvr.ErrInvalidRequest):
		return "invalid input"
	case errors.As(err, &exhausted):
		return fmt.Sprintf("the CAPTCHA was not accepted in %d attempt(s), try --manual or a higher --retries", exhausted.Attempts)
	case errors.As(err, &serviceErr):
		return "the service rejected the query"
	case errors.As(err, &parseErr):
		return "could not read the service's page, its layout may have changed (rerun with --dump-http)"
	case errors.As(err, &networkErr):
		return "could not reach the service"
	}
	return "query failed"
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderResult(w io.Writer, res mvr.QueryResult, raw bool) {
	if raw {
		fmt.Fprintln(w, res.RawHTML)
		return
	}

	t := newTable(w)
	t.AppendRow(table.Row{"Status", res.StatusText})
	if !res.AsOf.IsZero() {
		t.AppendRow(table.Row{"As of", res.AsOf.Format("02.01.2006")})
	}
	t.AppendRow(table.Row{"Outcome", mvr.Classify(res.StatusText).String()})
	t.AppendRow(table.Row{"Attempts", res.Attempts})
	t.Render()
}

func openHistory(config HistoryConfig, cmd *cobra.Command) (historystore.Store, func(), error) {
	database, err := config.Database.OpenDB()
	if err != nil {
		return historystore.Store{}, nil, err
	}
	store := historystore.NewStore(database)
	store.KeepRawHTML = config.KeepRawHTML
	err = store.Migrate(cmd.Context())
	if err != nil {
		database.Close()
		return historystore.Store{}, nil, err
	}
	return store, func() { database.Close() }, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	subjectID, lastName := args[0], args[1]

	config, err := loadConfig(configPath)
	if err != nil {
		return fail("failed to read config", err)
	}

	var dump restyutil.InstrumentOutput
	if flags.dumpHttp != "" {
		out, err := restyutil.NewFilesystemOutput(flags.dumpHttp)
		if err != nil {
			return fail("failed to create http dump directory", err)
		}
		slog.Info("dumping http exchanges", "dir", out.Dir())
		dump = out
	}

	client, err := mvr.NewClient(mvr.ClientOptions{
		Config:   config.Client,
		Tel:      telemetry.SlogAPI{},
		HttpDump: dump,
	})
	if err != nil {
		return fail("failed to create client", err)
	}

	solver, err := selectSolver(flags, config, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return fail("failed to setup captcha solver", err)
	}

	var store *historystore.Store
	if flags.history {
		s, closeDb, err := openHistory(config.History, cmd)
		if err != nil {
			return fail("failed to open history database", err)
		}
		defer closeDb()
		store = &s
	}

	opts := mvr.QueryOptions{
		Solver: solver,
		Delay:  flags.delay,
		OnAttempt: func(a mvr.Attempt) {
			slog.Info(
				"attempt",
				"number", a.Number,
				"outcome", a.Outcome.String(),
				"captcha", a.Captcha,
			)
			if store == nil {
				return
			}
			err := store.Record(ctx, subjectID, lastName, a)
			if err != nil {
				slog.Warn("failed to record attempt", "err", err)
			}
		},
	}
	if cmd.Flags().Changed("retries") {
		opts.MaxRetries = &flags.retries
	}

	res, err := client.Query(ctx, subjectID, lastName, opts)
	if err != nil {
		if flags.raw && res.RawHTML != "" {
			fmt.Fprintln(cmd.OutOrStdout(), res.RawHTML)
		}
		return fail(describeFailure(err), err)
	}

	renderResult(cmd.OutOrStdout(), res, flags.raw)

	if flags.notify {
		notifier, err := notify.NewNotifier(config.Notify)
		if err != nil {
			return fail("notify is not configured", err)
		}
		err = notifier.Send(ctx, subjectID, res)
		if err != nil {
			return fail("failed to send notification", err)
		}
		slog.Info("notification sent")
	}
	return nil
}
