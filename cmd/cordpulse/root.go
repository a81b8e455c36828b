package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/infrastructure"
	"cordpulse/internal/services"
	"cordpulse/pkg/contracts"
	"cordpulse/pkg/contracts/domain"
)

// options are the flags shared by every subcommand.
type options struct {
	configFile string
	dataset    string
	minYear    int
	maxYear    int
	journal    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cordpulse",
		Short: "Explore the COVID-19 Open Research Dataset metadata",
		Long: `cordpulse loads a CORD-19 metadata.csv, cleans it and renders the
dashboard: publications per year, top journals, a word cloud of titles and
the source distribution.

serve runs the web dashboard; render and export produce the same charts
and filtered data as files for a given filter.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(contracts.GetVersionString() + "\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml or ./configs/config.yaml)")
	flags.StringVar(&opts.dataset, "dataset", "", "metadata file, local path or gs://bucket/object (overrides dataset.path)")
	flags.IntVar(&opts.minYear, "min-year", 0, "first publication year to include (default: earliest in the data)")
	flags.IntVar(&opts.maxYear, "max-year", 0, "last publication year to include (default: latest in the data)")
	flags.StringVar(&opts.journal, "journal", "", `journal to show, or "All"`)

	root.AddCommand(
		newServeCmd(opts),
		newRenderCmd(opts),
		newExportCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies --dataset.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.dataset != "" {
		cfg.Dataset.Path = o.dataset
	}
	return cfg, nil
}

// filterState turns the year and journal flags into a filter; flags that
// were not given keep their defaults.
func (o *options) filterState(cmd *cobra.Command) domain.FilterState {
	var state domain.FilterState
	flags := cmd.Flags()
	if flags.Changed("min-year") {
		v := o.minYear
		state.MinYear = &v
	}
	if flags.Changed("max-year") {
		v := o.maxYear
		state.MaxYear = &v
	}
	state.Journal = o.journal
	return state
}

// cliLogger logs to w so stdout carries only command output.
func cliLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	return infrastructure.NewLoggerWithWriter(cfg, w)
}

// userError rewrites pipeline failures into the message a user sees on the
// dashboard page.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if dataprocessing.IsDataLoadError(err) {
		return errors.New(services.FailureStatus(err).Message)
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok && len(details.Errors) > 0 {
			msgs := make([]string, len(details.Errors))
			for i, fe := range details.Errors {
				msgs[i] = fe.Message
			}
			return fmt.Errorf("%s: %s", apiErr.Message, strings.Join(msgs, "; "))
		}
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := contracts.GetVersionInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, contracts.GetVersionString())
			fmt.Fprintf(out, "build time: %s\ngit commit: %s\ngo: %s %s/%s\n",
				info.BuildTime, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
		},
	}
}
