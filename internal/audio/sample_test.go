package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromU8(t *testing.T) {
	tests := []struct {
		in   uint8
		want int16
	}{
		{0, math.MinInt16},
		{1, -32512},
		{127, -256},
		{128, 0},
		{129, 256},
		{255, 32512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromU8(tt.in), "FromU8(%d)", tt.in)
	}
}

func TestFromF32(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, -math.MaxInt16},
		{0.5, 16383},
		{-0.5, -16383},
		{2, math.MaxInt16},
		{-3, math.MinInt16},
		{float32(math.Inf(1)), math.MaxInt16},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromF32(tt.in), "FromF32(%v)", tt.in)
	}
}

func TestFromI16_PassThrough(t *testing.T) {
	for _, v := range []int16{math.MinInt16, -1, 0, 1, math.MaxInt16} {
		assert.Equal(t, v, FromI16(v))
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{
		"":     EncodingUnknown,
		"auto": EncodingUnknown,
		"u8":   EncodingU8,
		"i16":  EncodingI16,
		"f32":  EncodingF32,
	} {
		got, err := ParseEncoding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
		if want != EncodingUnknown {
			assert.Equal(t, in, got.String())
		}
	}

	_, err := ParseEncoding("s24")
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestNormalizerFor_Unsupported(t *testing.T) {
	_, err := NormalizerFor(EncodingUnknown)
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestNormalizerFor_Bytes(t *testing.T) {
	t.Run("u8", func(t *testing.T) {
		n, err := NormalizerFor(EncodingU8)
		require.NoError(t, err)
		assert.Equal(t, []int16{math.MinInt16, 0, 32512}, n(nil, []byte{0, 128, 255}))
	})

	t.Run("i16", func(t *testing.T) {
		n, err := NormalizerFor(EncodingI16)
		require.NoError(t, err)
		raw := make([]byte, 6)
		binary.LittleEndian.PutUint16(raw[0:], uint16(0x7fff))
		binary.LittleEndian.PutUint16(raw[2:], 0x8000)
		binary.LittleEndian.PutUint16(raw[4:], 42)
		assert.Equal(t, []int16{math.MaxInt16, math.MinInt16, 42}, n(nil, raw))
	})

	t.Run("f32", func(t *testing.T) {
		n, err := NormalizerFor(EncodingF32)
		require.NoError(t, err)
		raw := make([]byte, 12)
		binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(1.5))
		binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))
		binary.LittleEndian.PutUint32(raw[8:], math.Float32bits(0))
		assert.Equal(t, []int16{math.MaxInt16, -math.MaxInt16, 0}, n(nil, raw))
	})

	t.Run("appends to dst", func(t *testing.T) {
		n, err := NormalizerFor(EncodingU8)
		require.NoError(t, err)
		assert.Equal(t, []int16{7, 0}, n([]int16{7}, []byte{128}))
	})
}

func TestEncoding_BytesPerSample(t *testing.T) {
	assert.Equal(t, 1, EncodingU8.BytesPerSample())
	assert.Equal(t, 2, EncodingI16.BytesPerSample())
	assert.Equal(t, 4, EncodingF32.BytesPerSample())
	assert.Equal(t, 0, EncodingUnknown.BytesPerSample())
}
