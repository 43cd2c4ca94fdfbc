// Package vad предоставляет классификаторы речевой активности.
//
// Классификатор получает подготовленный кадр из 512 сэмплов PCM16 при 16kHz
// и возвращает вероятность речи в диапазоне [0, 1]. Классификаторы хранят
// состояние между вызовами, поэтому кадры одного потока должны подаваться по порядку.
package vad

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Kind тип классификатора в конфиге.
type Kind string

const (
	// KindAuto - Silero, если модель доступна, иначе энергетический детектор.
	KindAuto Kind = "auto"
	// KindSilero - только Silero VAD; ошибка загрузки фатальна.
	KindSilero Kind = "silero"
	// KindEnergy - энергетический детектор без внешних зависимостей.
	KindEnergy Kind = "energy"
)

// ErrUnavailable возвращается, если Silero VAD не может работать в этой сборке.
var ErrUnavailable = errors.New("silero vad недоступен")

// Classifier оценивает вероятность речи в кадре.
type Classifier interface {
	// Predict возвращает вероятность речи в [0, 1].
	Predict(frame []int16) (float32, error)
	// Reset сбрасывает внутреннее состояние модели.
	Reset()
	// Close освобождает ресурсы.
	Close() error
}

// RawInput реализуют классификаторы, которым нужен кадр до подготовки
// сигнала (усиления и предыскажения).
type RawInput interface {
	RawInput() bool
}

// Config настройки создания классификатора.
type Config struct {
	Kind       Kind
	ModelPath  string // путь к silero_vad.onnx
	RuntimeLib string // путь к libonnxruntime (пусто - системный)
}

// New создаёт классификатор по конфигу и оборачивает его в Locked.
func New(cfg Config) (*Locked, error) {
	switch cfg.Kind {
	case KindEnergy:
		return NewLocked(NewEnergy()), nil
	case KindSilero:
		s, err := NewSilero(cfg.ModelPath, cfg.RuntimeLib)
		if err != nil {
			return nil, fmt.Errorf("загрузка silero vad: %w", err)
		}
		return NewLocked(s), nil
	case KindAuto, "":
		s, err := NewSilero(cfg.ModelPath, cfg.RuntimeLib)
		if err != nil {
			log.Printf("Silero VAD недоступен (%v), используется энергетический детектор", err)
			return NewLocked(NewEnergy()), nil
		}
		return NewLocked(s), nil
	default:
		return nil, fmt.Errorf("неизвестный классификатор: %s", cfg.Kind)
	}
}

// Locked сериализует доступ к классификатору.
// Состояние модели меняется при каждом вызове, поэтому вызовы не должны пересекаться,
// даже если сейчас классификатор вызывается из одного потока.
type Locked struct {
	mu    sync.Mutex
	inner Classifier
}

// NewLocked оборачивает классификатор мьютексом.
func NewLocked(c Classifier) *Locked {
	return &Locked{inner: c}
}

// Predict вызывает классификатор под блокировкой и ограничивает результат [0, 1].
func (l *Locked) Predict(frame []int16) (float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.inner.Predict(frame)
	if err != nil {
		return 0, err
	}
	return Clamp(p), nil
}

// Reset сбрасывает состояние под блокировкой.
func (l *Locked) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Reset()
}

// Close закрывает классификатор под блокировкой.
func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Close()
}

// RawInput возвращает true, если вложенный классификатор оценивает исходные кадры.
func (l *Locked) RawInput() bool {
	r, ok := l.inner.(RawInput)
	return ok && r.RawInput()
}

// Name возвращает имя вложенного классификатора (для логов).
func (l *Locked) Name() string {
	switch l.inner.(type) {
	case *Energy:
		return string(KindEnergy)
	default:
		return string(KindSilero)
	}
}

// Clamp ограничивает вероятность диапазоном [0, 1]; NaN считается нулём.
func Clamp(p float32) float32 {
	if p != p || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
