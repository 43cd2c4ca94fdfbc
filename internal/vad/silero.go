//go:build cgo

package vad

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	sileroSampleRate = 16000
	sileroChunk      = 512 // размер блока Silero при 16kHz
	sileroContext    = 64  // сэмплы предыдущего блока, которые модель ожидает перед текущим
)

var ortInit struct {
	once sync.Once
	err  error
}

// initRuntime инициализирует окружение onnxruntime один раз на процесс.
func initRuntime(libPath string) error {
	ortInit.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if ort.IsInitialized() {
			return
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortInit.err = fmt.Errorf("инициализация onnxruntime: %w", err)
		}
	})
	return ortInit.err
}

// Silero - классификатор на модели Silero VAD v5 (ONNX).
// Рекуррентное состояние и контекст из 64 сэмплов переносятся между вызовами,
// поэтому кадры должны подаваться строго по порядку.
type Silero struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32] // [1, context+chunk]
	state   *ort.Tensor[float32] // [2, 1, 128]
	sr      *ort.Scalar[int64]
	output  *ort.Tensor[float32] // [1, 1]
	stateN  *ort.Tensor[float32] // [2, 1, 128]
}

// NewSilero загружает модель из modelPath.
func NewSilero(modelPath, libPath string) (*Silero, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: не задан путь к модели", ErrUnavailable)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: модель не найдена: %s", ErrUnavailable, modelPath)
	}
	if err := initRuntime(libPath); err != nil {
		return nil, err
	}

	s := &Silero{}
	var err error
	if s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, sileroContext+sileroChunk)); err != nil {
		return nil, fmt.Errorf("создание тензора input: %w", err)
	}
	if s.state, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("создание тензора state: %w", err)
	}
	if s.sr, err = ort.NewScalar(int64(sileroSampleRate)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("создание тензора sr: %w", err)
	}
	if s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("создание тензора output: %w", err)
	}
	if s.stateN, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128)); err != nil {
		s.destroy()
		return nil, fmt.Errorf("создание тензора stateN: %w", err)
	}

	s.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{s.input, s.state, s.sr},
		[]ort.Value{s.output, s.stateN},
		nil,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("создание сессии: %w", err)
	}

	return s, nil
}

// Predict прогоняет один кадр из 512 сэмплов через модель.
func (s *Silero) Predict(frame []int16) (float32, error) {
	if len(frame) != sileroChunk {
		return 0, fmt.Errorf("silero ожидает %d сэмплов, получено %d", sileroChunk, len(frame))
	}

	in := s.input.GetData()
	// Контекст: хвост предыдущего блока уже лежит в конце буфера.
	copy(in[:sileroContext], in[sileroChunk:])
	for i, v := range frame {
		in[sileroContext+i] = float32(v) / 32768.0
	}

	if err := s.session.Run(); err != nil {
		return 0, fmt.Errorf("инференс silero: %w", err)
	}

	copy(s.state.GetData(), s.stateN.GetData())
	return Clamp(s.output.GetData()[0]), nil
}

// Reset обнуляет рекуррентное состояние и контекст.
func (s *Silero) Reset() {
	clear(s.state.GetData())
	clear(s.input.GetData())
}

// Close освобождает сессию и тензоры.
func (s *Silero) Close() error {
	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	s.destroy()
	return err
}

func (s *Silero) destroy() {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.state != nil {
		s.state.Destroy()
		s.state = nil
	}
	if s.sr != nil {
		s.sr.Destroy()
		s.sr = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.stateN != nil {
		s.stateN.Destroy()
		s.stateN = nil
	}
}
