package commands

import (
	"fmt"
	"io"
	"time"

	"mvr-docstatus/lib/historystore"
	"mvr-docstatus/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
	historyPrune time.Duration
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "How many attempts to list.")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Only list the attempts of this run id, including their raw HTML.")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete attempts older than this before listing.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--run <run id>] [--prune <age>]",
	Short: "Lists previous query attempts recorded with --history.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(configPath)
		if err != nil {
			return fail("failed to read config", err)
		}
		store, closeDb, err := openHistory(config.History, cmd)
		if err != nil {
			return fail("failed to open history database", err)
		}
		defer closeDb()

		if historyPrune > 0 {
			count, err := store.Prune(cmd.Context(), timezone.Now().Add(-historyPrune))
			if err != nil {
				return fail("failed to prune history", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d attempt(s)\n", count)
		}

		var entries []historystore.Entry
		if historyRun != "" {
			entries, err = store.Run(cmd.Context(), historyRun)
		} else {
			entries, err = store.Recent(cmd.Context(), historyLimit)
		}
		if err != nil {
			return fail("failed to read history", err)
		}

		renderHistory(cmd.OutOrStdout(), entries)
		if historyRun != "" {
			for _, e := range entries {
				if e.RawHTML == "" {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n--- attempt %d ---\n%s\n", e.Attempt, e.RawHTML)
			}
		}
		return nil
	},
}

func renderHistory(w io.Writer, entries []historystore.Entry) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Time", "Run", "#", "ЕГН", "Name", "Captcha", "Outcome", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 8, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, e := range entries {
		status := e.StatusText
		if status == "" {
			status = e.Error
		}
		runID := e.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		t.AppendRow(table.Row{
			e.Time.Format("02.01.2006 15:04:05"),
			runID,
			e.Attempt,
			e.SubjectID,
			e.LastName,
			e.Captcha,
			e.Outcome,
			status,
		})
	}
	t.Render()
}
