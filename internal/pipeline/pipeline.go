// Package pipeline связывает этапы обработки аудио: нормализацию, нарезку
// на кадры, подготовку сигнала, классификацию и разбиение на фрагменты.
//
// Все этапы выполняются синхронно в callback'е аудиопотока, без очередей.
package pipeline

import (
	"fmt"
	"math"
	"sync/atomic"

	"vad-recorder/internal/audio"
	"vad-recorder/internal/segmenter"
	"vad-recorder/internal/vad"
)

// Операции, в которых может возникнуть фатальная ошибка потока.
const (
	OpNormalize = "normalize"
	OpClassify  = "classify"
	OpSegment   = "segment"
)

// StreamError - фатальная ошибка обработки потока. После неё поток останавливается.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("ошибка потока (%s): %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Pipeline - изменяемое состояние обработки одного потока.
type Pipeline struct {
	encoding   audio.Encoding
	normalize  audio.Normalizer
	frames     *audio.FrameBuffer
	classifier *vad.Locked
	rawInput   bool // классификатору нужен кадр до подготовки
	machine    *segmenter.Machine

	scratch []int16
	failed  error
	level   atomic.Uint64 // биты float64: уровень последнего кадра, dBFS
}

// New создаёт pipeline для согласованного формата сэмплов.
// Сбрасывает рекуррентное состояние классификатора.
func New(enc audio.Encoding, classifier *vad.Locked, machine *segmenter.Machine) (*Pipeline, error) {
	normalize, err := audio.NormalizerFor(enc)
	if err != nil {
		return nil, err
	}
	classifier.Reset()

	p := &Pipeline{
		encoding:   enc,
		normalize:  normalize,
		frames:     audio.NewFrameBuffer(),
		classifier: classifier,
		rawInput:   classifier.RawInput(),
		machine:    machine,
	}
	p.level.Store(math.Float64bits(audio.SilenceDB))
	return p, nil
}

// Level возвращает уровень последнего кадра с микрофона в dBFS (до усиления).
// Безопасен для вызова из другой горутины.
func (p *Pipeline) Level() float64 {
	return math.Float64frombits(p.level.Load())
}

// Encoding возвращает формат сэмплов, с которым работает pipeline.
func (p *Pipeline) Encoding() audio.Encoding {
	return p.encoding
}

// ProcessBlock обрабатывает блок сырых байт (little-endian) произвольной длины.
func (p *Pipeline) ProcessBlock(raw []byte) error {
	if p.failed != nil {
		return p.failed
	}
	if bps := p.encoding.BytesPerSample(); len(raw)%bps != 0 {
		return p.fail(OpNormalize, fmt.Errorf("длина блока %d не кратна размеру сэмпла %d", len(raw), bps))
	}
	p.scratch = p.normalize(p.scratch[:0], raw)
	return p.ProcessSamples(p.scratch)
}

// ProcessSamples обрабатывает уже нормализованные сэмплы.
// Все полные кадры из буфера классифицируются по порядку.
func (p *Pipeline) ProcessSamples(samples []int16) error {
	if p.failed != nil {
		return p.failed
	}
	p.frames.Push(samples)

	for {
		frame, ok := p.frames.TakeFrame()
		if !ok {
			return nil
		}
		if err := p.processFrame(frame); err != nil {
			return err
		}
	}
}

func (p *Pipeline) processFrame(frame audio.Frame) error {
	p.level.Store(math.Float64bits(audio.LevelDB(frame)))
	conditioned := audio.Condition(frame)

	input := conditioned
	if p.rawInput {
		input = frame
	}
	score, err := p.classifier.Predict(input)
	if err != nil {
		return p.fail(OpClassify, err)
	}
	if err := p.machine.Feed(score, conditioned); err != nil {
		return p.fail(OpSegment, err)
	}
	return nil
}

func (p *Pipeline) fail(op string, err error) error {
	p.failed = &StreamError{Op: op, Err: err}
	return p.failed
}

// Err возвращает фатальную ошибку, если она была.
func (p *Pipeline) Err() error {
	return p.failed
}

// State возвращает состояние автомата разбиения.
func (p *Pipeline) State() segmenter.State {
	return p.machine.State()
}

// Flush сохраняет незавершённый фрагмент. Неполный кадр в буфере отбрасывается.
func (p *Pipeline) Flush() error {
	p.frames.Reset()
	if p.failed != nil {
		return p.failed
	}
	if err := p.machine.Flush(); err != nil {
		return p.fail(OpSegment, err)
	}
	return nil
}

// Abort отбрасывает незавершённый фрагмент.
func (p *Pipeline) Abort() error {
	p.frames.Reset()
	return p.machine.Abort()
}
