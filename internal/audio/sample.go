// Package audio содержит потоковую обработку сэмплов с микрофона:
// нормализацию форматов устройства, нарезку на кадры и подготовку кадров для VAD.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// SampleRate - частота дискретизации конвейера (требование Silero VAD).
	SampleRate = 16000
	// Channels - количество каналов (mono).
	Channels = 1
	// BitsPerSample - разрядность нормализованных сэмплов.
	BitsPerSample = 16
)

// ErrUnsupportedEncoding возвращается, если устройство предлагает формат,
// который конвейер не умеет нормализовать. Формат согласуется один раз при
// открытии потока, поэтому это ошибка запуска, а не ошибка отдельного сэмпла.
var ErrUnsupportedEncoding = errors.New("неподдерживаемый формат сэмплов")

// Encoding формат сэмплов, который отдаёт устройство.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingU8
	EncodingI16
	EncodingF32
)

// String возвращает короткое имя формата (совпадает со значениями в конфиге).
func (e Encoding) String() string {
	switch e {
	case EncodingU8:
		return "u8"
	case EncodingI16:
		return "i16"
	case EncodingF32:
		return "f32"
	default:
		return "unknown"
	}
}

// BytesPerSample возвращает размер одного сэмпла в байтах.
func (e Encoding) BytesPerSample() int {
	switch e {
	case EncodingU8:
		return 1
	case EncodingI16:
		return 2
	case EncodingF32:
		return 4
	default:
		return 0
	}
}

// ParseEncoding разбирает формат из конфига. Пустая строка и "auto" дают
// EncodingUnknown - выбор остаётся за устройством.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "auto":
		return EncodingUnknown, nil
	case "u8":
		return EncodingU8, nil
	case "i16":
		return EncodingI16, nil
	case "f32":
		return EncodingF32, nil
	default:
		return EncodingUnknown, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

// FromU8 переводит беззнаковый 8-битный сэмпл в знаковый 16-битный:
// 128 соответствует нулю, каждый шаг 8 бит равен 256 единицам.
func FromU8(u uint8) int16 {
	return (int16(u) - 128) << 8
}

// FromI16 возвращает сэмпл без изменений.
func FromI16(s int16) int16 {
	return s
}

// FromF32 масштабирует сэмпл из [-1.0, 1.0] в диапазон int16 с ограничением по краям.
func FromF32(f float32) int16 {
	return ClampI16(f * math.MaxInt16)
}

// ClampI16 ограничивает значение диапазоном int16 и отбрасывает дробную часть.
func ClampI16(v float32) int16 {
	if v != v { // NaN
		return 0
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Normalizer декодирует сырой little-endian буфер устройства в PCM16.
// Результат дописывается в dst, возвращается расширенный срез.
type Normalizer func(dst []int16, raw []byte) []int16

// NormalizerFor возвращает нормализатор для формата устройства.
func NormalizerFor(enc Encoding) (Normalizer, error) {
	switch enc {
	case EncodingU8:
		return normalizeU8Bytes, nil
	case EncodingI16:
		return normalizeI16Bytes, nil
	case EncodingF32:
		return normalizeF32Bytes, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
}

func normalizeU8Bytes(dst []int16, raw []byte) []int16 {
	for _, u := range raw {
		dst = append(dst, FromU8(u))
	}
	return dst
}

func normalizeI16Bytes(dst []int16, raw []byte) []int16 {
	for i := 0; i+1 < len(raw); i += 2 {
		dst = append(dst, int16(binary.LittleEndian.Uint16(raw[i:])))
	}
	return dst
}

func normalizeF32Bytes(dst []int16, raw []byte) []int16 {
	for i := 0; i+3 < len(raw); i += 4 {
		dst = append(dst, FromF32(math.Float32frombits(binary.LittleEndian.Uint32(raw[i:]))))
	}
	return dst
}

// AppendU8 нормализует типизированный буфер portaudio.
func AppendU8(dst []int16, in []uint8) []int16 {
	return normalizeU8Bytes(dst, in)
}

// AppendI16 нормализует типизированный буфер portaudio.
func AppendI16(dst []int16, in []int16) []int16 {
	return append(dst, in...)
}

// AppendF32 нормализует типизированный буфер portaudio.
func AppendF32(dst []int16, in []float32) []int16 {
	for _, f := range in {
		dst = append(dst, FromF32(f))
	}
	return dst
}
