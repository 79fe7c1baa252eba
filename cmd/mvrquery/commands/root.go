package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mvr-docstatus/lib/serviceutil"
	"mvr-docstatus/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	tel        telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "mvrquery <egn> <last-name>",
	Short: "mvrquery checks the status of bulgarian personal documents issued by the MVR.",
	Long: `mvrquery asks the MVR document status service whether a personal document
(identity card, passport, driving licence) has been issued for the person
with the given ЕГН and last name and is waiting to be collected.

The CAPTCHA on the form is solved with a vision model when an OpenAI API key
is configured (ocr.api_key in mvrquery.json5 or OPENAI_API_KEY), otherwise it
is shown to you and you type it in.`,
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// past argument validation, failures from here on are not usage errors
		cmd.SilenceUsage = true
		telemetry.InitSlog(verbose)
		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "mvrquery")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
	},
	RunE: runQuery,
}

// failure is what a command returns when it gives up, ExecuteContext logs it
// once telemetry has been flushed.
type failure struct {
	message string
	err     error
}

func fail(message string, err error) error {
	return failure{message: message, err: err}
}

func (f failure) Error() string {
	return f.message + ": " + f.err.Error()
}

func (f failure) Unwrap() error {
	return f.err
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mvrquery.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	registerQueryFlags(rootCmd)
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	shutdownTelemetry()
	if err == nil {
		return
	}
	var f failure
	if errors.As(err, &f) {
		serviceutil.Fatal(f.message, f.err)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
