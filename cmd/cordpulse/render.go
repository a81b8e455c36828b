package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cordpulse/internal/app"
	"cordpulse/internal/charts"
	"cordpulse/internal/validation"
)

func newRenderCmd(opts *options) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write every dashboard chart to a directory",
		Long: `render builds the four dashboard charts for the filter given by
--min-year, --max-year and --journal. Charts are written as <name>.png;
a chart that cannot be drawn, for example because a column is missing or
nothing matches the filter, is written as <name>.txt holding the notice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg.Logging, cmd.ErrOrStderr())
			if err := validation.NewFileValidator(logger).ValidateOutputDirectory(outDir); err != nil {
				return err
			}
			dashboard, source := app.NewDashboard(cfg.Dataset, logger, nil)
			defer source.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			state := opts.filterState(cmd)

			view, err := dashboard.Build(ctx, state)
			if err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.Status.Message)
			fmt.Fprintf(out, "Filter: %d-%d, journal %s (%d of %d rows)\n",
				view.Filter.MinYear, view.Filter.MaxYear, view.Filter.Journal, view.FilteredRows, view.TotalRows)

			for _, name := range dashboard.ChartNames() {
				artifact, err := dashboard.Chart(ctx, name, state)
				if err != nil {
					return err
				}
				path, err := writeArtifact(outDir, artifact)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "charts", "output directory")
	return cmd
}

func writeArtifact(dir string, a charts.Artifact) (string, error) {
	path := filepath.Join(dir, a.Name+".png")
	data := a.PNG
	if a.IsText() {
		path = filepath.Join(dir, a.Name+".txt")
		data = []byte(a.Message + "\n")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	return path, nil
}
