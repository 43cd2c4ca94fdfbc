package vad

import "math"

// Energy - грубый детектор речи по RMS кадра.
// Используется, когда модель Silero или onnxruntime недоступны.
// Уровень кадра в dBFS переводится в вероятность логистической функцией
// и сглаживается экспоненциально, чтобы вероятность не скакала между кадрами.
//
// Подготовка сигнала приводит пик каждого кадра к 10% шкалы и уносит громкость,
// поэтому Energy получает кадр до подготовки (см. RawInput).
type Energy struct {
	centerDB  float64 // уровень, которому соответствует вероятность 0.5
	widthDB   float64 // крутизна перехода
	smoothing float64 // вес нового значения
	last      float64
	started   bool
}

// NewEnergy создаёт детектор для кадров с микрофона без усиления.
// Вероятность 0.9 соответствует RMS около 0.015 (-36.5 dBFS),
// 0.4 - около 0.008 (-42 dBFS).
func NewEnergy() *Energy {
	return &Energy{
		centerDB:  -43,
		widthDB:   2.5,
		smoothing: 0.6,
	}
}

// RawInput сообщает pipeline, что оценивать нужно исходный кадр.
func (e *Energy) RawInput() bool {
	return true
}

// Predict возвращает сглаженную вероятность речи.
func (e *Energy) Predict(frame []int16) (float32, error) {
	p := 0.0
	if level := rms(frame); level > 0 {
		db := 20 * math.Log10(level)
		p = 1 / (1 + math.Exp(-(db-e.centerDB)/e.widthDB))
	}

	if e.started {
		p = e.smoothing*p + (1-e.smoothing)*e.last
	}
	e.last = p
	e.started = true
	return float32(p), nil
}

// Reset сбрасывает сглаживание.
func (e *Energy) Reset() {
	e.last = 0
	e.started = false
}

// Close ничего не делает.
func (e *Energy) Close() error {
	return nil
}

// rms вычисляет среднеквадратичный уровень PCM16, нормированный к [0, 1].
func rms(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sum float64
	for _, s := range pcm {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
