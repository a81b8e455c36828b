package dataprocessing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadataCSV = `cord_uid,title,abstract,publish_time,journal,source_x
ug7v899j,Clinical features of culture-proven Mycoplasma,"OBJECTIVE: This retrospective chart review",2001-07-04,BMC Infect Dis,PMC
02tnwd4m,Nitric oxide: a pro-inflammatory mediator,,2000-08-15,Respir Res,PMC
ejv2xln0,,Surfactant protein-D and pulmonary host defense,NA,Respir Res,PMC
2b73a28n,Role of endothelin-1 in lung disease,Endothelin-1 (ET-1) is a 21 amino acid peptide,2001-02-22,,Medline
`

type stubSource struct {
	body string
	err  error
}

func (s stubSource) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestLoadCSV(t *testing.T) {
	rt, err := LoadCSV(context.Background(), strings.NewReader(metadataCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"cord_uid", "title", "abstract", "publish_time", "journal", "source_x"}, rt.Columns)
	require.Len(t, rt.Rows, 4)

	abstract := rt.ColumnIndex("abstract")
	title := rt.ColumnIndex("title")
	published := rt.ColumnIndex("publish_time")
	journal := rt.ColumnIndex("journal")

	assert.Equal(t, Text("OBJECTIVE: This retrospective chart review"), rt.Rows[0][abstract])
	assert.False(t, rt.Rows[1][abstract].Valid, "empty field is missing")
	assert.False(t, rt.Rows[2][title].Valid)
	assert.False(t, rt.Rows[2][published].Valid, "NA marker is missing")
	assert.False(t, rt.Rows[3][journal].Valid)
	assert.Equal(t, -1, rt.ColumnIndex("doi"))
}

func TestLoadCSV_ThenClean(t *testing.T) {
	rt, err := LoadCSV(context.Background(), strings.NewReader(metadataCSV))
	require.NoError(t, err)

	table, err := Clean(rt)
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, NoTitle, table.Record(2).Title)
	assert.Equal(t, NoAbstract, table.Record(1).Abstract)
	assert.Equal(t, YearOf(2000), table.Record(2).PublishYear, "forward filled from the row above")
	v, ok := table.Value(0, ColumnSource)
	assert.True(t, ok)
	assert.Equal(t, "PMC", v)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "ragged rows", input: "title,abstract,publish_time\na,b\n"},
		{name: "bad quoting", input: "title,abstract\n\"unterminated,x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, IsDataLoadError(err))
		})
	}
}

func TestLoadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadCSV(ctx, strings.NewReader(metadataCSV))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	rt, err := LoadFile(context.Background(), stubSource{body: metadataCSV}, "metadata.csv")
	require.NoError(t, err)
	assert.Len(t, rt.Rows, 4)

	_, err = LoadFile(context.Background(), stubSource{err: os.ErrNotExist}, "missing.csv")
	require.Error(t, err)
	var dle *DataLoadError
	require.True(t, errors.As(err, &dle))
	assert.Equal(t, "missing.csv", dle.Path)
	assert.Equal(t, "open", dle.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(context.Background(), stubSource{body: "a,b\n1\n"}, filepath.Join("data", "bad.csv"))
	require.True(t, errors.As(err, &dle))
	assert.Equal(t, filepath.Join("data", "bad.csv"), dle.Path)
}
