package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	"github.com/matzehuels/licensecrawl/pkg/report"
)

func (c *CLI) historyCommand() *cobra.Command {
	var (
		mongoURI string
		project  string
		limit    int64
		csv      bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored scans or print the records of one",
		Long: `History reads the reports that scan --mongo-uri stored.

Without arguments it lists the most recent runs. With a run ID it prints that
run's records in the same format as scan.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg.Mongo
			if cmd.Flags().Changed("mongo-uri") {
				cfg.URI = mongoURI
			}
			if cfg.URI == "" {
				return apperr.New(apperr.ErrCodeInvalidConfig, "no MongoDB configured (set --mongo-uri or [mongo] uri)")
			}

			ctx := cmd.Context()
			sink, err := report.NewMongoSink(ctx, cfg.URI, cfg.Database)
			if err != nil {
				return err
			}
			defer sink.Close(ctx)

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := sink.Runs(ctx, project, limit)
				if err != nil {
					return err
				}
				printRuns(out, runs)
				return nil
			}

			records, err := sink.Records(ctx, args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return apperr.New(apperr.ErrCodeInvalidInput, "no records stored for run %s", args[0])
			}
			if csv {
				return report.WriteCSV(out, records, report.Options{})
			}
			return report.WriteText(out, records, report.Options{})
		},
	}
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection string")
	cmd.Flags().StringVar(&project, "project", "", "only list runs of this project directory")
	cmd.Flags().Int64Var(&limit, "limit", 20, "number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&csv, "csv", false, "write CSV")
	return cmd
}

func printRuns(w io.Writer, runs []report.RunDocument) {
	if len(runs) == 0 {
		printInfo(w, "No stored runs")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			r.Started.Local().Format(time.DateTime),
			r.Project,
			fmt.Sprint(r.Records),
			fmt.Sprint(r.Unknown),
			fmt.Sprint(r.Violations),
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("RUN", "STARTED", "PROJECT", "PACKAGES", "UNKNOWN", "VIOLATIONS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}
