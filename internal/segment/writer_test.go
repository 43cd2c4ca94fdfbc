package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readWAV(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile(), "невалидный WAV: %s", path)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return dec, buf.Data
}

func TestWriter_RoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	ts := time.UnixMilli(1700000000123)
	seg, err := w.Open(ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), seg.ID())
	assert.Equal(t, "vad_1700000000123.wav", filepath.Base(seg.Path))

	first := []int16{0, 1, -1, 32767, -32768}
	second := []int16{100, 200, 300}
	require.NoError(t, w.Append(seg, first))
	require.NoError(t, w.Append(seg, nil))
	require.NoError(t, w.Append(seg, second))
	assert.Equal(t, 8, seg.Samples)

	path, err := w.Finalize(seg)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	dec, data := readWAV(t, path)
	assert.Equal(t, uint32(16000), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Equal(t, []int{0, 1, -1, 32767, -32768, 100, 200, 300}, data)
}

func TestWriter_LongSegment(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	seg, err := w.Open(time.Now())
	require.NoError(t, err)

	frame := make([]int16, 512)
	for i := range frame {
		frame[i] = int16(i - 256)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Append(seg, frame))
	}
	path, err := w.Finalize(seg)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44+10*512*2), info.Size())

	_, data := readWAV(t, path)
	require.Len(t, data, 10*512)
	assert.Equal(t, -256, data[0])
	assert.Equal(t, 255, data[len(data)-1])
}

func TestWriter_UniqueNames(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	ts := time.UnixMilli(42)
	a, err := w.Open(ts)
	require.NoError(t, err)
	b, err := w.Open(ts)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, "vad_42.wav", filepath.Base(a.Path))
	assert.Equal(t, "vad_42_1.wav", filepath.Base(b.Path))

	require.NoError(t, w.Abort(a))
	require.NoError(t, w.Abort(b))
}

func TestWriter_Abort(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	seg, err := w.Open(time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Append(seg, []int16{1, 2, 3}))
	require.NoError(t, w.Abort(seg))

	_, err = os.Stat(seg.Path)
	assert.True(t, os.IsNotExist(err))

	// повторные операции над закрытым фрагментом
	assert.NoError(t, w.Abort(seg))
	assert.Error(t, w.Append(seg, []int16{1}))
	_, err = w.Finalize(seg)
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewWriter_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "segments")
	w, err := NewWriter(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
