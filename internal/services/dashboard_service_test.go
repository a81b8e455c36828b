package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cordpulse/internal/cache"
	"cordpulse/internal/charts"
	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/exporter"
	"cordpulse/internal/files"
	"cordpulse/internal/shared/testutil"
	"cordpulse/pkg/contracts/domain"
)

type countingSource struct {
	inner *files.Source
	opens int32
}

func (c *countingSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	atomic.AddInt32(&c.opens, 1)
	return c.inner.Open(ctx, path)
}

func newTestService(t *testing.T) (*DashboardService, *countingSource) {
	t.Helper()
	dir := t.TempDir()
	path := testutil.WriteMetadataFile(t, dir)
	src := &countingSource{inner: files.NewSource(dir)}
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDashboardService(
		config.DatasetConfig{Path: path, SampleSize: 3},
		src,
		cache.NewDatasetCache(time.Hour),
		WithLogger(logger),
	)
	return svc, src
}

func TestDashboardService_Load(t *testing.T) {
	svc, src := newTestService(t)

	status, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Loaded)
	assert.Equal(t, testutil.MetadataCSVRecords, status.Records)
	// doi is pruned; publish_year and abstract_word_count are added
	assert.Equal(t, 8, status.Columns)
	assert.Equal(t, "Loaded dataset with 6 records and 8 columns.", status.Message)

	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.opens), "second load should hit the cache")

	stats := svc.CacheStats()
	assert.EqualValues(t, 1, stats.HitCount)
	assert.EqualValues(t, 1, stats.MissCount)

	entry, ok := svc.CachedEntry()
	require.True(t, ok)
	assert.Equal(t, svc.DatasetPath(), entry.Path)
}

func TestDashboardService_LoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewDashboardService(
		config.DatasetConfig{Path: "missing.csv"},
		files.NewSource(dir),
		cache.NewDatasetCache(time.Hour),
	)

	status, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, dataprocessing.IsDataLoadError(err))
	assert.False(t, status.Loaded)
	assert.True(t, strings.HasPrefix(status.Message, "Failed to load dataset: "), status.Message)

	// failed loads are not cached
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestDashboardService_Reload(t *testing.T) {
	svc, src := newTestService(t)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.opens))
}

func TestDashboardService_Controls(t *testing.T) {
	svc, _ := newTestService(t)

	controls, err := svc.Controls(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2019, controls.YearMin)
	assert.Equal(t, 2021, controls.YearMax)
	assert.Equal(t, []string{"All", "BMJ", "Lancet", "Nature"}, controls.JournalOptions)
	assert.Equal(t, domain.AppliedFilter{MinYear: 2019, MaxYear: 2021, Journal: domain.AllJournals}, controls.Defaults)
}

func TestDashboardService_Apply(t *testing.T) {
	svc, _ := newTestService(t)
	controls, err := svc.Controls(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		state   domain.FilterState
		want    domain.AppliedFilter
		wantErr string
	}{
		{
			name:  "defaults",
			state: domain.FilterState{},
			want:  domain.AppliedFilter{MinYear: 2019, MaxYear: 2021, Journal: "All"},
		},
		{
			name:  "partial",
			state: domain.FilterState{MinYear: domain.Years(2020, 0).MinYear, Journal: " Lancet "},
			want:  domain.AppliedFilter{MinYear: 2020, MaxYear: 2021, Journal: "Lancet"},
		},
		{
			name:  "single year",
			state: domain.Years(2020, 2020),
			want:  domain.AppliedFilter{MinYear: 2020, MaxYear: 2020, Journal: "All"},
		},
		{
			name:    "inverted range",
			state:   domain.Years(2021, 2019),
			wantErr: "max_year must not be less than MinYear",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Apply(tt.state, controls)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, 400, apiErr.StatusCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			require.Len(t, details.Errors, 1)
			assert.Equal(t, "max_year", details.Errors[0].Field)
			assert.Equal(t, tt.wantErr, details.Errors[0].Message)
		})
	}
}

func TestDashboardService_Build(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		state    domain.FilterState
		filtered int
	}{
		// a5 has no parseable date and never matches a year range
		{name: "all", state: domain.FilterState{}, filtered: 5},
		{name: "journal", state: domain.FilterState{Journal: "Lancet"}, filtered: 3},
		{name: "year and journal", state: withJournal(domain.Years(2021, 2021), "Lancet"), filtered: 2},
		{name: "unknown journal", state: domain.FilterState{Journal: "Science"}, filtered: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.Build(context.Background(), tt.state)
			require.NoError(t, err)

			assert.True(t, view.Status.Loaded)
			assert.Equal(t, testutil.MetadataCSVRecords, view.TotalRows)
			assert.Equal(t, tt.filtered, view.FilteredRows)
			assert.LessOrEqual(t, len(view.Sample.Rows), 3)
			assert.Equal(t, min(tt.filtered, 3), len(view.Sample.Rows))

			require.Len(t, view.Charts, 4)
			for i, name := range svc.ChartNames() {
				assert.Equal(t, name, view.Charts[i].Name)
				if tt.filtered == 0 {
					assert.True(t, view.Charts[i].IsText())
					assert.Equal(t, charts.NoData, view.Charts[i].Message)
				} else {
					assert.True(t, strings.HasPrefix(view.Charts[i].Image, "data:image/png;base64,"), name)
				}
			}
		})
	}
}

func withJournal(s domain.FilterState, journal string) domain.FilterState {
	s.Journal = journal
	return s
}

func TestDashboardService_BuildSample(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Build(context.Background(), domain.FilterState{Journal: "Lancet"})
	require.NoError(t, err)

	require.NotEmpty(t, view.Sample.Columns)
	assert.Equal(t, "cord_uid", view.Sample.Columns[0])
	assert.Contains(t, view.Sample.Columns, "publish_year")
	assert.NotContains(t, view.Sample.Columns, "doi")

	titleIdx := indexOf(view.Sample.Columns, "title")
	require.GreaterOrEqual(t, titleIdx, 0)
	titles := make([]string, len(view.Sample.Rows))
	for i, row := range view.Sample.Rows {
		titles[i] = row[titleIdx]
	}
	assert.Equal(t, []string{"Coronavirus spread in households", dataprocessing.NoTitle, "Mask efficacy review"}, titles)
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

func TestDashboardService_BuildCancelled(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Build(ctx, domain.FilterState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDashboardService_Chart(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Chart(context.Background(), charts.SourceDistribution, domain.FilterState{})
	require.NoError(t, err)
	assert.Equal(t, []charts.Point{{Label: "PMC", Count: 3}, {Label: "Medline", Count: 1}, {Label: "WHO", Count: 1}}, a.Points)

	_, err = svc.Chart(context.Background(), "pie", domain.FilterState{})
	assert.ErrorIs(t, err, ErrUnknownChart)
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type)
}

func TestDashboardService_Export(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.ParseFormat("csv")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), f, domain.FilterState{Journal: "Lancet"}, &buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "csv export starts with a BOM")
	assert.Equal(t, 4, strings.Count(out, "\n"), "header plus three Lancet rows")

	_, err = svc.ParseFormat("pdf")
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type)
}

func TestDashboardService_ExportInvalidFilterWritesNothing(t *testing.T) {
	svc, _ := newTestService(t)

	var buf bytes.Buffer
	err := svc.Export(context.Background(), exporter.FormatCSV, domain.Years(2021, 2019), &buf)
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDashboardService_ExportWriteFailure(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Export(context.Background(), exporter.FormatCSV, domain.FilterState{}, failingWriter{})
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeExport, appErr.Type)
	assert.Equal(t, "csv", appErr.Context["format"])
}

func TestChartView(t *testing.T) {
	v := ChartView(charts.Artifact{Name: "n", Section: "S", Kind: charts.KindBar, PNG: []byte{1, 2, 3}})
	assert.Equal(t, "data:image/png;base64,AQID", v.Image)
	assert.Equal(t, "bar", v.Kind)

	text := ChartView(charts.Artifact{Kind: charts.KindText, Message: "m"})
	assert.Empty(t, text.Image)
	assert.True(t, text.IsText())
}
