package files

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, object)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjects) Close() error {
	return m.Called().Error(0)
}

func TestSource_OpenLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.csv"), []byte("title\nA\n"), 0644))

	src := NewSource(dir)
	rc, err := src.Open(context.Background(), "metadata.csv")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "title\nA\n", string(body))
	assert.True(t, src.Exists("metadata.csv"))
	assert.False(t, src.Exists("other.csv"))

	_, err = src.Open(context.Background(), "other.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_OpenGCS(t *testing.T) {
	objects := &mockObjects{}
	objects.On("NewReader", mock.Anything, "cord-19", "2022-06-02/metadata.csv").
		Return(io.NopCloser(strings.NewReader("title\n")), nil).Once()
	objects.On("NewReader", mock.Anything, "cord-19", "missing.csv").
		Return(nil, errors.New("object doesn't exist")).Once()
	objects.On("Close").Return(nil).Once()

	src := NewSource("", WithObjectOpener(objects))

	rc, err := src.Open(context.Background(), "gs://cord-19/2022-06-02/metadata.csv")
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = src.Open(context.Background(), "gs://cord-19/missing.csv")
	assert.ErrorContains(t, err, "object doesn't exist")

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	objects.AssertExpectations(t)
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://bucket/metadata.csv", wantBucket: "bucket", wantObject: "metadata.csv"},
		{uri: "gs://bucket/a/b/c.csv", wantBucket: "bucket", wantObject: "a/b/c.csv"},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs:///object", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "s3://bucket/key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestSource_CreateAndResolve(t *testing.T) {
	dir := t.TempDir()
	src := NewSource(dir)

	f, err := src.Create(filepath.Join("exports", "view.csv"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, filepath.Join(dir, "exports", "view.csv"))

	abs := filepath.Join(dir, "x.csv")
	assert.Equal(t, abs, src.Resolve(abs))

	_, err = src.Create("gs://bucket/out.csv")
	assert.Error(t, err)
}
