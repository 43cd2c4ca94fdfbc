// Package segmenter реализует конечный автомат разбиения потока на фрагменты речи.
//
// Автомат получает оценку речи для каждого кадра и решает, когда открыть
// новый фрагмент, дописать в него кадр и когда фрагмент завершить.
package segmenter

import (
	"fmt"
	"log"
	"time"

	"vad-recorder/internal/audio"
	"vad-recorder/internal/segment"
)

// Пороги по умолчанию.
const (
	DefaultStartThreshold float32 = 0.9
	DefaultEndThreshold   float32 = 0.4
)

// State - состояние автомата.
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// Thresholds задаёт гистерезис: речь начинается при оценке строго выше Start
// и заканчивается при оценке строго ниже End.
type Thresholds struct {
	Start float32
	End   float32
}

// DefaultThresholds возвращает пороги 0.9 / 0.4.
func DefaultThresholds() Thresholds {
	return Thresholds{Start: DefaultStartThreshold, End: DefaultEndThreshold}
}

// Validate проверяет, что 0 <= End <= Start <= 1.
func (t Thresholds) Validate() error {
	if t.End < 0 || t.Start > 1 || t.End > t.Start {
		return fmt.Errorf("некорректные пороги: начало %.2f, конец %.2f (нужно 0 <= конец <= начало <= 1)", t.Start, t.End)
	}
	return nil
}

// Store - хранилище фрагментов. Реализуется segment.Writer.
type Store interface {
	Open(ts time.Time) (*segment.Segment, error)
	Append(seg *segment.Segment, samples []int16) error
	Finalize(seg *segment.Segment) (string, error)
	Abort(seg *segment.Segment) error
}

// Events - получатель событий о границах фрагментов.
type Events interface {
	SpeechStarted()
	AudioSaved(path string)
	SpeechEnded()
}

// Machine - автомат Idle/Speaking. Не потокобезопасен: вызывается
// из одного callback'а аудиопотока.
type Machine struct {
	th     Thresholds
	store  Store
	events Events
	now    func() time.Time

	state State
	seg   *segment.Segment
}

// New создаёт автомат в состоянии Idle.
func New(th Thresholds, store Store, events Events) *Machine {
	return &Machine{
		th:     th,
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// State возвращает текущее состояние.
func (m *Machine) State() State {
	return m.state
}

// Feed обрабатывает оценку очередного кадра. Кадр дописывается в открытый
// фрагмент, включая кадр начала и кадр окончания речи.
// Ошибка хранилища фатальна для потока.
func (m *Machine) Feed(score float32, frame audio.Frame) error {
	if m.state == Idle && score > m.th.Start {
		// Сначала файл, потом событие: без файла о начале речи не сообщаем
		seg, err := m.store.Open(m.now())
		if err != nil {
			return fmt.Errorf("открытие фрагмента: %w", err)
		}
		m.seg = seg
		m.state = Speaking
		log.Printf("Начало речи, фрагмент %s", seg.Path)
		m.events.SpeechStarted()
	}

	if m.state != Speaking {
		return nil
	}

	if err := m.store.Append(m.seg, frame); err != nil {
		return fmt.Errorf("запись кадра: %w", err)
	}

	if score < m.th.End {
		return m.finish()
	}
	return nil
}

func (m *Machine) finish() error {
	seg := m.seg
	m.seg = nil
	m.state = Idle

	path, err := m.store.Finalize(seg)
	if err != nil {
		return fmt.Errorf("завершение фрагмента: %w", err)
	}
	log.Printf("Фрагмент сохранён: %s (%d сэмплов)", path, seg.Samples)

	m.events.AudioSaved(path)
	m.events.SpeechEnded()
	return nil
}

// Flush завершает открытый фрагмент так же, как при окончании речи.
// Вызывается при штатной остановке потока.
func (m *Machine) Flush() error {
	if m.state != Speaking || m.seg == nil {
		return nil
	}
	return m.finish()
}

// Abort отбрасывает открытый фрагмент без уведомлений и возвращает автомат в Idle.
func (m *Machine) Abort() error {
	seg := m.seg
	m.seg = nil
	m.state = Idle
	if seg == nil {
		return nil
	}
	log.Printf("Фрагмент %s отброшен", seg.Path)
	return m.store.Abort(seg)
}
