package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(url string) ModelInfo {
	return ModelInfo{ID: "test", Name: "Test", Filename: "test.onnx", URL: url, Size: 4}
}

func TestRegistry(t *testing.T) {
	m, ok := GetModel(DefaultModelID())
	require.True(t, ok)
	assert.Equal(t, "silero_vad.onnx", m.Filename)

	_, ok = GetModel("unknown-model")
	assert.False(t, ok)

	seen := map[string]bool{}
	for _, m := range Registry {
		assert.False(t, seen[m.ID], "повтор ID %s", m.ID)
		seen[m.ID] = true
		assert.NotEmpty(t, m.URL)
		assert.Positive(t, m.Size)
	}
}

func TestManager_Download(t *testing.T) {
	payload := []byte("onnx-model-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	info := testModel(srv.URL + "/model.onnx")
	assert.False(t, m.IsDownloaded(info))

	progress := make(chan Progress, 16)
	require.NoError(t, m.Download(context.Background(), info, progress))
	close(progress)

	var last Progress
	for p := range progress {
		last = p
	}
	assert.True(t, last.Done)
	assert.Equal(t, int64(len(payload)), last.Downloaded)

	data, err := os.ReadFile(m.GetModelPath(info))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.True(t, m.IsDownloaded(info))

	_, err = os.Stat(m.GetModelPath(info) + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// повторная загрузка не ходит в сеть
	srv.Close()
	require.NoError(t, m.Download(context.Background(), info, nil))

	require.NoError(t, m.Delete(info))
	assert.False(t, m.IsDownloaded(info))
	require.NoError(t, m.Delete(info))
}

func TestManager_DownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	info := testModel(srv.URL)

	err = m.Download(context.Background(), info, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, m.IsDownloaded(info))
}

func TestManager_DownloadCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, m.Download(ctx, testModel(srv.URL), nil))
}

func TestNewManager_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "models")
	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.ModelsDir())
	assert.Empty(t, m.ListDownloaded())
}
