package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"cordpulse/internal/cache"
	"cordpulse/internal/charts"
	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/exporter"
	"cordpulse/internal/infrastructure"
	"cordpulse/pkg/contracts/domain"
)

// DatasetCache is the part of cache.DatasetCache the dashboard needs.
type DatasetCache interface {
	Get(ctx context.Context, path string, load cache.LoadFunc) (*dataprocessing.Table, bool, error)
	Entry(path string) (cache.Entry, bool)
	Invalidate(path string)
	Stats() cache.Stats
}

// DashboardService runs the load, clean, filter and render pipeline for one
// filter state at a time. It keeps no per-client state; the only shared
// value is the cached cleaned table.
type DashboardService struct {
	datasetPath string
	sampleSize  int
	source      dataprocessing.Source
	cache       DatasetCache
	registry    *charts.Registry
	exporter    *exporter.Exporter
	metrics     *infrastructure.PipelineMetrics
	validate    *validator.Validate
	logger      *slog.Logger
}

// DashboardOption configures a DashboardService.
type DashboardOption func(*DashboardService)

// WithMetrics records cache, load and render metrics.
func WithMetrics(m *infrastructure.PipelineMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) DashboardOption {
	return func(s *DashboardService) { s.logger = l }
}

// WithRegistry replaces the default chart registry.
func WithRegistry(r *charts.Registry) DashboardOption {
	return func(s *DashboardService) { s.registry = r }
}

// NewDashboardService creates the dashboard service for the configured dataset.
func NewDashboardService(cfg config.DatasetConfig, source dataprocessing.Source, datasets DatasetCache, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		datasetPath: cfg.Path,
		sampleSize:  cfg.SampleSize,
		source:      source,
		cache:       datasets,
		registry:    charts.DefaultRegistry(),
		exporter:    exporter.New(),
		metrics:     infrastructure.NoopPipelineMetrics(),
		validate:    newFilterValidator(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampleSize <= 0 {
		s.sampleSize = config.DefaultSampleSize
	}
	s.logger = infrastructure.WithComponent(s.logger, "dashboard_service")
	s.registry.Observe(func(name string, elapsed time.Duration) {
		s.metrics.RecordChartRender(context.Background(), name, elapsed)
	})
	return s
}

func newFilterValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DatasetPath returns the configured dataset location.
func (s *DashboardService) DatasetPath() string {
	return s.datasetPath
}

// ChartNames returns the chart names in display order.
func (s *DashboardService) ChartNames() []string {
	return s.registry.Names()
}

// CacheStats returns the dataset cache counters.
func (s *DashboardService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// CachedEntry returns the live cache entry for the dataset, if any.
func (s *DashboardService) CachedEntry() (cache.Entry, bool) {
	return s.cache.Entry(s.datasetPath)
}

// Dataset returns the cleaned table, loading it on a cache miss.
func (s *DashboardService) Dataset(ctx context.Context) (*dataprocessing.Table, error) {
	table, hit, err := s.cache.Get(ctx, s.datasetPath, s.load)
	s.metrics.RecordCacheLookup(ctx, s.datasetPath, hit)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *DashboardService) load(ctx context.Context, path string) (*dataprocessing.Table, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dataset.load")
	defer span.End()

	start := time.Now()
	table, err := s.loadAndClean(ctx, path)
	s.metrics.RecordDatasetLoad(ctx, time.Since(start), table.Len(), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "Failed to load dataset",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("path", path),
		slog.Int("records", table.Len()),
		slog.Int("columns", len(table.Columns())),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

func (s *DashboardService) loadAndClean(ctx context.Context, path string) (*dataprocessing.Table, error) {
	raw, err := dataprocessing.LoadFile(ctx, s.source, path)
	if err != nil {
		return nil, err
	}
	table, err := dataprocessing.Clean(raw)
	if err != nil {
		var dle *dataprocessing.DataLoadError
		if errors.As(err, &dle) && dle.Path == "" {
			dle.Path = path
		}
		return nil, err
	}
	return table, nil
}

// Load ensures the dataset is available and describes it.
func (s *DashboardService) Load(ctx context.Context) (domain.Status, error) {
	table, err := s.Dataset(ctx)
	if err != nil {
		return FailureStatus(err), err
	}
	return statusFor(table), nil
}

// FailureStatus is the banner shown when the dataset cannot be loaded.
func FailureStatus(err error) domain.Status {
	return domain.Status{Message: fmt.Sprintf("Failed to load dataset: %v", err)}
}

func statusFor(t *dataprocessing.Table) domain.Status {
	return domain.Status{
		Loaded:  true,
		Message: fmt.Sprintf("Loaded dataset with %d records and %d columns.", t.Len(), len(t.Columns())),
		Records: t.Len(),
		Columns: len(t.Columns()),
	}
}

// Reload drops the cached table and loads it again.
func (s *DashboardService) Reload(ctx context.Context) (domain.Status, error) {
	s.cache.Invalidate(s.datasetPath)
	s.logger.InfoContext(ctx, "Dataset cache invalidated", slog.String("path", s.datasetPath))
	return s.Load(ctx)
}

// Controls returns the sidebar bounds and options for the dataset.
func (s *DashboardService) Controls(ctx context.Context) (domain.Controls, error) {
	table, err := s.Dataset(ctx)
	if err != nil {
		return domain.Controls{}, err
	}
	return s.controlsFor(table)
}

func (s *DashboardService) controlsFor(t *dataprocessing.Table) (domain.Controls, error) {
	lo, hi, ok := dataprocessing.YearBounds(t)
	if !ok {
		return domain.Controls{}, &dataprocessing.DataLoadError{
			Path: s.datasetPath,
			Op:   "controls",
			Err:  dataprocessing.ErrNoYears,
		}
	}
	return domain.Controls{
		YearMin:        lo,
		YearMax:        hi,
		JournalOptions: dataprocessing.CategoryOptions(t, dataprocessing.ColumnJournal),
		Defaults:       domain.AppliedFilter{MinYear: lo, MaxYear: hi, Journal: domain.AllJournals},
	}, nil
}

// Apply fills the unset parts of state from the control defaults and
// validates the result.
func (s *DashboardService) Apply(state domain.FilterState, controls domain.Controls) (domain.AppliedFilter, error) {
	applied := controls.Defaults
	if state.MinYear != nil {
		applied.MinYear = *state.MinYear
	}
	if state.MaxYear != nil {
		applied.MaxYear = *state.MaxYear
	}
	if j := strings.TrimSpace(state.Journal); j != "" {
		applied.Journal = j
	}

	if err := s.validate.Struct(applied); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return applied, apierrors.NewValidationErrors(apierrors.FieldErrors(fieldErrs))
		}
		return applied, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return applied, nil
}

// Filtered returns the cleaned table restricted to state.
func (s *DashboardService) Filtered(ctx context.Context, state domain.FilterState) (*dataprocessing.Table, domain.AppliedFilter, error) {
	table, err := s.Dataset(ctx)
	if err != nil {
		return nil, domain.AppliedFilter{}, err
	}
	controls, err := s.controlsFor(table)
	if err != nil {
		return nil, domain.AppliedFilter{}, err
	}
	applied, err := s.Apply(state, controls)
	if err != nil {
		return nil, applied, err
	}
	return dataprocessing.Filter(table, query(applied)), applied, nil
}

func query(f domain.AppliedFilter) dataprocessing.Query {
	return dataprocessing.Query{MinYear: f.MinYear, MaxYear: f.MaxYear, Journal: f.Journal}
}

// Build runs the whole pipeline for one filter state.
func (s *DashboardService) Build(ctx context.Context, state domain.FilterState) (*domain.DashboardView, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.build")
	defer span.End()

	table, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	controls, err := s.controlsFor(table)
	if err != nil {
		return nil, err
	}
	applied, err := s.Apply(state, controls)
	if err != nil {
		return nil, err
	}

	filtered := dataprocessing.Filter(table, query(applied))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	artifacts := s.registry.RenderAll(filtered)

	views := make([]domain.ChartView, len(artifacts))
	for i, a := range artifacts {
		views[i] = ChartView(a)
	}

	s.logger.DebugContext(ctx, "Dashboard built",
		slog.Int("min_year", applied.MinYear),
		slog.Int("max_year", applied.MaxYear),
		slog.String("journal", applied.Journal),
		slog.Int("filtered_rows", filtered.Len()))

	return &domain.DashboardView{
		Status:       statusFor(table),
		Controls:     controls,
		Filter:       applied,
		Sample:       SampleOf(filtered, s.sampleSize),
		TotalRows:    table.Len(),
		FilteredRows: filtered.Len(),
		Charts:       views,
	}, nil
}

// Chart renders a single chart for state.
func (s *DashboardService) Chart(ctx context.Context, name string, state domain.FilterState) (charts.Artifact, error) {
	if _, ok := s.registry.Lookup(name); !ok {
		return charts.Artifact{}, apierrors.NewNotFoundError(fmt.Sprintf("chart %q", name), ErrUnknownChart)
	}
	filtered, _, err := s.Filtered(ctx, state)
	if err != nil {
		return charts.Artifact{}, err
	}
	a, err := s.registry.Render(name, filtered)
	if err != nil {
		return charts.Artifact{}, apierrors.NewRenderError(fmt.Sprintf("failed to render %s", name), err)
	}
	return a, nil
}

// ParseFormat resolves an export format name.
func (s *DashboardService) ParseFormat(name string) (exporter.Format, error) {
	f, err := exporter.ParseFormat(name)
	if err != nil {
		return "", apierrors.NewNotFoundError(fmt.Sprintf("export format %q", name), err)
	}
	return f, nil
}

// Export writes the filtered view in format f. Nothing is written to w when
// loading or validation fails.
func (s *DashboardService) Export(ctx context.Context, f exporter.Format, state domain.FilterState, w io.Writer) error {
	filtered, applied, err := s.Filtered(ctx, state)
	if err != nil {
		return err
	}
	if err := s.exporter.Export(w, f, filtered); err != nil {
		return apierrors.NewExportError(fmt.Sprintf("failed to export %s", f), err).
			WithContext("format", string(f))
	}
	s.logger.InfoContext(ctx, "Dataset exported",
		slog.String("format", string(f)),
		slog.Int("rows", filtered.Len()),
		slog.Int("min_year", applied.MinYear),
		slog.Int("max_year", applied.MaxYear),
		slog.String("journal", applied.Journal))
	return nil
}

// SampleOf returns the first n rows of t as display strings.
func SampleOf(t *dataprocessing.Table, n int) domain.Sample {
	head := t.Head(n)
	columns := head.Columns()
	sample := domain.Sample{Columns: columns, Rows: make([][]string, head.Len())}
	for i := range sample.Rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j], _ = head.Value(i, col)
		}
		sample.Rows[i] = row
	}
	return sample
}

// ChartView converts an artifact for transport. PNG bytes become a data URI.
func ChartView(a charts.Artifact) domain.ChartView {
	v := domain.ChartView{
		Name:    a.Name,
		Section: a.Section,
		Kind:    string(a.Kind),
		Title:   a.Title,
		Message: a.Message,
	}
	if len(a.PNG) > 0 {
		v.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(a.PNG)
	}
	return v
}
