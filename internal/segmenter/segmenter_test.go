package segmenter

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vad-recorder/internal/audio"
	"vad-recorder/internal/segment"
)

type recorder struct {
	events []string
	paths  []string
}

func (r *recorder) SpeechStarted() { r.events = append(r.events, "speech-started") }
func (r *recorder) AudioSaved(path string) {
	r.events = append(r.events, "audio-saved")
	r.paths = append(r.paths, path)
}
func (r *recorder) SpeechEnded() { r.events = append(r.events, "speech-ended") }

// memStore хранит фрагменты в памяти и считает открытые.
type memStore struct {
	open     int
	maxOpen  int
	data     map[string][]int16
	next     int
	failOpen error
	failApp  error
	aborted  []string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]int16)}
}

func (s *memStore) Open(ts time.Time) (*segment.Segment, error) {
	if s.failOpen != nil {
		return nil, s.failOpen
	}
	s.next++
	s.open++
	if s.open > s.maxOpen {
		s.maxOpen = s.open
	}
	path := fmt.Sprintf("/tmp/seg_%d.wav", s.next)
	s.data[path] = nil
	return &segment.Segment{Started: ts, Path: path}, nil
}

func (s *memStore) Append(seg *segment.Segment, samples []int16) error {
	if s.failApp != nil {
		return s.failApp
	}
	s.data[seg.Path] = append(s.data[seg.Path], samples...)
	seg.Samples += len(samples)
	return nil
}

func (s *memStore) Finalize(seg *segment.Segment) (string, error) {
	s.open--
	return seg.Path, nil
}

func (s *memStore) Abort(seg *segment.Segment) error {
	s.open--
	s.aborted = append(s.aborted, seg.Path)
	delete(s.data, seg.Path)
	return nil
}

func frameOf(v int16) audio.Frame {
	f := make(audio.Frame, audio.FrameSize)
	for i := range f {
		f[i] = v
	}
	return f
}

func feed(t *testing.T, m *Machine, scores ...float32) {
	t.Helper()
	for i, s := range scores {
		require.NoError(t, m.Feed(s, frameOf(int16(i+1))))
	}
}

func TestMachine_SpeechSegment(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := New(DefaultThresholds(), store, rec)

	feed(t, m, 0.95, 0.95, 0.2)

	assert.Equal(t, []string{"speech-started", "audio-saved", "speech-ended"}, rec.events)
	require.Len(t, rec.paths, 1)
	data := store.data[rec.paths[0]]
	require.Len(t, data, 3*audio.FrameSize)
	// кадр начала и кадр окончания входят во фрагмент
	assert.Equal(t, int16(1), data[0])
	assert.Equal(t, int16(3), data[len(data)-1])
	assert.Equal(t, Idle, m.State())
}

func TestMachine_NoSpeech(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := New(DefaultThresholds(), store, rec)

	feed(t, m, 0.5, 0.5, 0.5)

	assert.Empty(t, rec.events)
	assert.Empty(t, store.data)
	assert.Equal(t, Idle, m.State())
}

func TestMachine_Hysteresis(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		events []string
		state  State
	}{
		{"порог начала не включительно", []float32{0.9}, nil, Idle},
		{"порог окончания не включительно", []float32{0.91, 0.4}, []string{"speech-started"}, Speaking},
		{"средние оценки держат речь", []float32{0.95, 0.6, 0.5, 0.7}, []string{"speech-started"}, Speaking},
		{"тишина до речи", []float32{0.1, 0.0, 0.95}, []string{"speech-started"}, Speaking},
		{
			"два фрагмента",
			[]float32{0.95, 0.1, 0.5, 0.99, 0.3},
			[]string{"speech-started", "audio-saved", "speech-ended", "speech-started", "audio-saved", "speech-ended"},
			Idle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			rec := &recorder{}
			m := New(DefaultThresholds(), store, rec)
			feed(t, m, tt.scores...)

			if tt.events == nil {
				assert.Empty(t, rec.events)
			} else {
				assert.Equal(t, tt.events, rec.events)
			}
			assert.Equal(t, tt.state, m.State())
			assert.LessOrEqual(t, store.maxOpen, 1)
		})
	}
}

func TestMachine_SingleStartWhileSpeaking(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := New(DefaultThresholds(), store, rec)

	feed(t, m, 0.95, 0.99, 0.97, 0.95, 0.96)

	assert.Equal(t, []string{"speech-started"}, rec.events)
	assert.Equal(t, 1, store.maxOpen)
	assert.Equal(t, 1, store.next)
}

func TestMachine_Abort(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := New(DefaultThresholds(), store, rec)

	feed(t, m, 0.95, 0.8)
	require.NoError(t, m.Abort())

	assert.Equal(t, []string{"speech-started"}, rec.events)
	assert.Len(t, store.aborted, 1)
	assert.Equal(t, 0, store.open)
	assert.Equal(t, Idle, m.State())

	// повторный Abort в Idle ничего не делает
	require.NoError(t, m.Abort())
	assert.Len(t, store.aborted, 1)
}

func TestMachine_StoreErrors(t *testing.T) {
	t.Run("открытие", func(t *testing.T) {
		store := newMemStore()
		store.failOpen = errors.New("диск заполнен")
		rec := &recorder{}
		m := New(DefaultThresholds(), store, rec)

		err := m.Feed(0.95, frameOf(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.failOpen)
		assert.Equal(t, Idle, m.State())
		// без файла speech-started не отправляется
		assert.Empty(t, rec.events)
	})

	t.Run("запись", func(t *testing.T) {
		store := newMemStore()
		store.failApp = errors.New("ошибка записи")
		m := New(DefaultThresholds(), store, &recorder{})

		err := m.Feed(0.95, frameOf(1))
		assert.ErrorIs(t, err, store.failApp)
	})
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{Start: 0.5, End: 0.5}.Validate())
	assert.NoError(t, Thresholds{Start: 1, End: 0}.Validate())
	assert.Error(t, Thresholds{Start: 0.3, End: 0.4}.Validate())
	assert.Error(t, Thresholds{Start: 1.2, End: 0.4}.Validate())
	assert.Error(t, Thresholds{Start: 0.9, End: -0.1}.Validate())
}

func TestMachine_WritesWAV(t *testing.T) {
	w, err := segment.NewWriter(t.TempDir())
	require.NoError(t, err)
	rec := &recorder{}
	m := New(DefaultThresholds(), w, rec)

	feed(t, m, 0.95, 0.95, 0.2)
	require.Len(t, rec.paths, 1)

	f, err := os.Open(rec.paths[0])
	require.NoError(t, err)
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	require.NoError(t, err)
	assert.Len(t, buf.Data, 3*audio.FrameSize)
}

func TestMachine_Flush(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := New(DefaultThresholds(), store, rec)

	require.NoError(t, m.Flush())
	assert.Empty(t, rec.events)

	feed(t, m, 0.95, 0.7)
	require.NoError(t, m.Flush())

	assert.Equal(t, []string{"speech-started", "audio-saved", "speech-ended"}, rec.events)
	require.Len(t, rec.paths, 1)
	assert.Len(t, store.data[rec.paths[0]], 2*audio.FrameSize)
	assert.Equal(t, Idle, m.State())
}
