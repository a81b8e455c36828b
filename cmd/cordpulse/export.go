package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cordpulse/internal/app"
	"cordpulse/internal/validation"
)

func newExportCmd(opts *options) *cobra.Command {
	var (
		format  string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered dataset to a file",
		Long: `export writes the cleaned rows matching the filter as csv, xlsx or
parquet. Use --out - to write to standard output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg.Logging, cmd.ErrOrStderr())
			dashboard, source := app.NewDashboard(cfg.Dataset, logger, nil)
			defer source.Close()

			f, err := dashboard.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			state := opts.filterState(cmd)

			if outFile == "-" {
				return userError(dashboard.Export(ctx, f, state, cmd.OutOrStdout()))
			}
			if outFile == "" {
				outFile = f.Filename("metadata_filtered")
			}
			if err := validation.NewFileValidator(logger).ValidateOutputFile(outFile); err != nil {
				return err
			}
			file, err := os.Create(outFile)
			if err != nil {
				return err
			}
			if err := dashboard.Export(ctx, f, state, file); err != nil {
				file.Close()
				os.Remove(outFile)
				return userError(err)
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Wrote", outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format: csv, xlsx or parquet")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: metadata_filtered.<format>)")
	return cmd
}
