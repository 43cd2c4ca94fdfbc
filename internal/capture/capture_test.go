package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vad-recorder/internal/audio"
)

func TestNew(t *testing.T) {
	b, err := New("")
	require.NoError(t, err)
	assert.Equal(t, BackendPortAudio, b.Name())

	b, err = New("MALGO")
	require.NoError(t, err)
	assert.Equal(t, BackendMalgo, b.Name())

	_, err = New("alsa")
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	assert.Equal(t,
		[]audio.Encoding{audio.EncodingF32, audio.EncodingI16, audio.EncodingU8},
		Candidates(audio.EncodingUnknown))
	assert.Equal(t, []audio.Encoding{audio.EncodingU8}, Candidates(audio.EncodingU8))
}

func TestMatchDevice(t *testing.T) {
	devices := []DeviceInfo{
		{Name: "HDMI Output", Channels: 0},
		{Name: "Built-in Microphone", Channels: 2},
		{Name: "USB Microphone", Channels: 1},
	}

	tests := []struct {
		name string
		want int
	}{
		{"usb", 2},
		{"  Microphone ", 1},
		{"hdmi", -1},
		{"bluetooth", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchDevice(devices, tt.name))
		})
	}
}

type sinkStub struct {
	blocks  int
	samples int
	err     error
}

func (s *sinkStub) ProcessBlock(raw []byte) error {
	s.blocks++
	return s.err
}

func (s *sinkStub) ProcessSamples(samples []int16) error {
	s.samples++
	return s.err
}

func TestFeeder_StopsAfterFirstError(t *testing.T) {
	sink := &sinkStub{err: errors.New("диск заполнен")}
	var reported []error
	f := &feeder{sink: sink, fail: func(err error) { reported = append(reported, err) }}

	f.samples([]int16{1})
	f.samples([]int16{2})
	f.block([]byte{1, 2})

	assert.Equal(t, 1, sink.samples)
	assert.Equal(t, 0, sink.blocks)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], sink.err)
}

func TestFeeder_PassesData(t *testing.T) {
	sink := &sinkStub{}
	f := &feeder{sink: sink}

	f.samples([]int16{1})
	f.block([]byte{1, 2})
	f.block([]byte{3, 4})

	assert.Equal(t, 1, sink.samples)
	assert.Equal(t, 2, sink.blocks)
}

func TestMalgoFormats(t *testing.T) {
	for enc, f := range malgoFormats {
		assert.Equal(t, enc, encodingOf(f))
	}
}
