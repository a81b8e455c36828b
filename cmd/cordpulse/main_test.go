package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cordpulse/internal/shared/testutil"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRender(t *testing.T) {
	dataset := testutil.WriteMetadataFile(t, t.TempDir())

	tests := []struct {
		name      string
		args      []string
		wantFiles []string
		wantOut   string
	}{
		{
			name: "all",
			wantFiles: []string{
				"publications_over_time.png", "source_distribution.png",
				"title_word_cloud.png", "top_journals.png",
			},
			wantOut: "Filter: 2019-2021, journal All (5 of 6 rows)",
		},
		{
			name: "journal and years",
			args: []string{"--journal", "Lancet", "--min-year", "2021"},
			wantFiles: []string{
				"publications_over_time.png", "source_distribution.png",
				"title_word_cloud.png", "top_journals.png",
			},
			wantOut: "Filter: 2021-2021, journal Lancet (2 of 6 rows)",
		},
		{
			name: "nothing matches",
			args: []string{"--journal", "Science"},
			wantFiles: []string{
				"publications_over_time.txt", "source_distribution.txt",
				"title_word_cloud.txt", "top_journals.txt",
			},
			wantOut: "(0 of 6 rows)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "charts")
			args := append([]string{"render", "--dataset", dataset, "--out", outDir}, tt.args...)

			stdout, _, err := run(t, args...)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Loaded dataset with 6 records and 8 columns.")
			assert.Contains(t, stdout, tt.wantOut)

			entries, err := os.ReadDir(outDir)
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			sort.Strings(names)
			assert.Equal(t, tt.wantFiles, names)
		})
	}
}

func TestRender_NoDataNotice(t *testing.T) {
	dataset := testutil.WriteMetadataFile(t, t.TempDir())
	outDir := t.TempDir()

	_, _, err := run(t, "render", "--dataset", dataset, "--out", outDir, "--journal", "Science")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "top_journals.txt"))
	require.NoError(t, err)
	assert.Equal(t, "No data available for the selected filters.\n", string(data))
}

func TestExport(t *testing.T) {
	dataset := testutil.WriteMetadataFile(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "out", "lancet.csv")

	_, stderr, err := run(t, "export", "--dataset", dataset, "--journal", "Lancet", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	// header plus three Lancet rows
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "publish_year")
}

func TestExport_Stdout(t *testing.T) {
	dataset := testutil.WriteMetadataFile(t, t.TempDir())

	stdout, _, err := run(t, "export", "--dataset", dataset, "--journal", "BMJ", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Influenza and coronavirus comparison")
	assert.NotContains(t, stdout, "Mask efficacy review")
}

func TestErrors(t *testing.T) {
	dataset := testutil.WriteMetadataFile(t, t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing dataset", args: []string{"render", "--dataset", dataset + ".gone", "--out", t.TempDir()}, wantErr: "Failed to load dataset"},
		{name: "inverted range", args: []string{"render", "--dataset", dataset, "--out", t.TempDir(), "--min-year", "2021", "--max-year", "2019"}, wantErr: "max_year must not be less than MinYear"},
		{name: "unknown format", args: []string{"export", "--dataset", dataset, "--format", "pdf", "--out", "-"}, wantErr: "pdf"},
		{name: "unknown command", args: []string{"plot"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExport_FailureRemovesFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "view.csv")

	_, _, err := run(t, "export", "--dataset", filepath.Join(dir, "missing.csv"), "--out", out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CORD Pulse v")

	stdout, _, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "git commit:")
}
