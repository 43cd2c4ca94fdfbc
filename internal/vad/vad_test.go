package vad

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted возвращает заранее заданные вероятности и проверяет, что вызовы не пересекаются.
type scripted struct {
	scores  []float32
	calls   int
	active  int
	overlap bool
	err     error
	resets  int
	closed  bool
}

func (s *scripted) Predict(frame []int16) (float32, error) {
	s.active++
	if s.active > 1 {
		s.overlap = true
	}
	defer func() { s.active-- }()
	if s.err != nil {
		return 0, s.err
	}
	p := s.scores[s.calls%len(s.scores)]
	s.calls++
	return p, nil
}

func (s *scripted) Reset()       { s.resets++ }
func (s *scripted) Close() error { s.closed = true; return nil }

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0), Clamp(-0.5))
	assert.Equal(t, float32(0), Clamp(float32(math.NaN())))
	assert.Equal(t, float32(0.25), Clamp(0.25))
	assert.Equal(t, float32(1), Clamp(7))
}

func TestLocked_ClampsScores(t *testing.T) {
	l := NewLocked(&scripted{scores: []float32{-1, 0.5, 2}})
	var got []float32
	for i := 0; i < 3; i++ {
		p, err := l.Predict(nil)
		require.NoError(t, err)
		got = append(got, p)
	}
	assert.Equal(t, []float32{0, 0.5, 1}, got)
}

func TestLocked_SerializesCalls(t *testing.T) {
	inner := &scripted{scores: []float32{0.1}}
	l := NewLocked(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = l.Predict(nil)
			}
		}()
	}
	wg.Wait()

	assert.False(t, inner.overlap)
	assert.Equal(t, 1600, inner.calls)
}

func TestLocked_PropagatesErrorsAndLifecycle(t *testing.T) {
	boom := errors.New("boom")
	inner := &scripted{err: boom}
	l := NewLocked(inner)

	_, err := l.Predict(nil)
	require.ErrorIs(t, err, boom)

	l.Reset()
	require.NoError(t, l.Close())
	assert.Equal(t, 1, inner.resets)
	assert.True(t, inner.closed)
}

func TestEnergy_ScoresInRange(t *testing.T) {
	e := NewEnergy()
	frames := [][]int16{
		make([]int16, 512),
		constFrame(512, 3276),
		constFrame(512, -32768),
		constFrame(512, 12),
	}
	for _, f := range frames {
		p, err := e.Predict(f)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, float32(0))
		assert.LessOrEqual(t, p, float32(1))
	}
}

func TestEnergy_SilenceIsZeroAfterReset(t *testing.T) {
	e := NewEnergy()
	_, _ = e.Predict(constFrame(512, 3276))
	e.Reset()

	p, err := e.Predict(make([]int16, 512))
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestEnergy_LoudFrameScoresHigherThanQuiet(t *testing.T) {
	quiet, err := NewEnergy().Predict(constFrame(512, 50))
	require.NoError(t, err)
	loud, err := NewEnergy().Predict(constFrame(512, 3276))
	require.NoError(t, err)
	assert.Greater(t, loud, quiet)
}

// noise - белый шум с заданным СКО в единицах младшего разряда.
func noise(rng *rand.Rand, n int, sigma float64) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = int16(rng.NormFloat64() * sigma)
	}
	return f
}

// voiced - основной тон и вторая гармоника, как у гласного звука.
func voiced(n, offset int, amp1, amp2 float64) []int16 {
	f := make([]int16, n)
	for i := range f {
		t := float64(offset+i) / 16000
		f[i] = int16(amp1*math.Sin(2*math.Pi*150*t) + amp2*math.Sin(2*math.Pi*300*t))
	}
	return f
}

// lastScore прогоняет 20 кадров и возвращает оценку последнего.
func lastScore(t *testing.T, frame func(i int) []int16) float32 {
	t.Helper()
	e := NewEnergy()
	var p float32
	for i := 0; i < 20; i++ {
		var err error
		p, err = e.Predict(frame(i))
		require.NoError(t, err)
	}
	return p
}

func TestEnergy_NoiseAndVoice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name   string
		frame  func(i int) []int16
		speech bool
	}{
		{"шум 3 LSB", func(int) []int16 { return noise(rng, 512, 3) }, false},
		{"шум 30 LSB", func(int) []int16 { return noise(rng, 512, 30) }, false},
		{"громкий голос", func(i int) []int16 { return voiced(512, i*512, 8000, 4000) }, true},
		{"тихий голос", func(i int) []int16 { return voiced(512, i*512, 1000, 500) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := lastScore(t, tt.frame)
			if tt.speech {
				assert.Greater(t, p, float32(0.9))
			} else {
				assert.Less(t, p, float32(0.4))
			}
		})
	}
}

func TestLocked_RawInput(t *testing.T) {
	assert.True(t, NewLocked(NewEnergy()).RawInput())
	assert.False(t, NewLocked(&scripted{}).RawInput())
}

func TestNew_Kinds(t *testing.T) {
	c, err := New(Config{Kind: KindEnergy})
	require.NoError(t, err)
	assert.Equal(t, "energy", c.Name())

	// Без модели auto откатывается на энергетический детектор.
	c, err = New(Config{Kind: KindAuto, ModelPath: "/nonexistent/silero_vad.onnx"})
	require.NoError(t, err)
	assert.Equal(t, "energy", c.Name())

	_, err = New(Config{Kind: KindSilero, ModelPath: "/nonexistent/silero_vad.onnx"})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = New(Config{Kind: "webrtc"})
	require.Error(t, err)
}

func constFrame(n int, v int16) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = v
	}
	return f
}
