// Package controller управляет жизненным циклом записи: открывает устройство,
// собирает pipeline и останавливает его по сигналу или фатальной ошибке.
package controller

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"vad-recorder/internal/audio"
	"vad-recorder/internal/capture"
	"vad-recorder/internal/pipeline"
	"vad-recorder/internal/segment"
	"vad-recorder/internal/segmenter"
	"vad-recorder/internal/vad"
)

// Config - параметры, применяемые при каждом Start.
type Config struct {
	Device     string
	Encoding   audio.Encoding
	Classifier vad.Config
	Thresholds segmenter.Thresholds
	OutputDir  string
}

// ClassifierFactory создаёт классификатор для нового запуска.
type ClassifierFactory func(cfg vad.Config) (*vad.Locked, error)

// Option настраивает Controller.
type Option func(*Controller)

// WithClassifierFactory подменяет создание классификатора.
func WithClassifierFactory(f ClassifierFactory) Option {
	return func(c *Controller) {
		c.newClassifier = f
	}
}

// Controller запускает и останавливает запись. Одновременно работает не более
// одного потока.
type Controller struct {
	backend       capture.Backend
	newClassifier ClassifierFactory

	mu      sync.Mutex
	cfg     Config
	running bool
	stop    chan struct{}
	done    chan struct{}
	pipe    *pipeline.Pipeline
}

// New создаёт Controller поверх backend'а захвата.
func New(cfg Config, backend capture.Backend, opts ...Option) (*Controller, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		backend:       backend,
		newClassifier: vad.New,
		cfg:           cfg,
		done:          closedChan(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// SetConfig задаёт параметры для следующего Start. Текущий поток не меняется.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// Running возвращает true, если запись идёт и остановка не запрошена.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.stop != nil
}

// Level возвращает уровень входного сигнала в dBFS. false, если запись не идёт.
func (c *Controller) Level() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.stop == nil || c.pipe == nil {
		return 0, false
	}
	return c.pipe.Level(), true
}

// Done возвращает канал, который закрывается после освобождения устройства.
// Если запись не идёт, канал уже закрыт.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Start запускает запись. Повторный вызов во время записи ничего не делает.
// Если предыдущий поток ещё останавливается, Start дожидается освобождения
// устройства и запускает новый.
// Ошибки выбора устройства и формата возвращаются сразу, ничего не остаётся запущенным.
func (c *Controller) Start(n Notifier) error {
	c.mu.Lock()
	for c.running && c.stop == nil {
		// Остановка запрошена, но устройство ещё не освобождено
		done := c.done
		c.mu.Unlock()
		<-done
		c.mu.Lock()
	}
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	cfg := c.cfg

	writer, err := segment.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	classifier, err := c.newClassifier(cfg.Classifier)
	if err != nil {
		return err
	}

	stream, err := c.backend.Open(capture.Options{Device: cfg.Device, Encoding: cfg.Encoding})
	if err != nil {
		classifier.Close()
		return err
	}

	machine := segmenter.New(cfg.Thresholds, writer, n)
	pipe, err := pipeline.New(stream.Encoding(), classifier, machine)
	if err != nil {
		stream.Close()
		classifier.Close()
		return err
	}

	// Ошибка из callback'а передаётся горутине захвата, только первая.
	failures := make(chan error, 1)
	fail := func(err error) {
		select {
		case failures <- err:
		default:
		}
	}

	if err := stream.Start(pipe, fail); err != nil {
		stream.Close()
		classifier.Close()
		return &pipeline.StreamError{Op: "start", Err: err}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.running = true
	c.stop = stop
	c.done = done
	c.pipe = pipe

	log.Printf("Прослушивание запущено: %s, устройство %s, формат %s, классификатор %s",
		c.backend.Name(), stream.Device(), stream.Encoding(), classifier.Name())

	go c.capture(stream, pipe, classifier, n, stop, failures, done)
	return nil
}

// Stop посылает сигнал остановки и не ждёт её завершения.
// Повторный вызов ничего не делает.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func (c *Controller) capture(stream capture.Stream, pipe *pipeline.Pipeline, classifier *vad.Locked,
	n Notifier, stop <-chan struct{}, failures <-chan error, done chan struct{}) {
	defer close(done)

	var fatal error
	select {
	case <-stop:
	case fatal = <-failures:
	}

	if err := stream.Close(); err != nil {
		log.Printf("Ошибка закрытия потока: %v", err)
	}

	if fatal != nil {
		if err := pipe.Abort(); err != nil {
			log.Printf("Ошибка удаления фрагмента: %v", err)
		}
	} else if err := pipe.Flush(); err != nil {
		fatal = err
	}

	if err := classifier.Close(); err != nil {
		log.Printf("Ошибка закрытия классификатора: %v", err)
	}

	c.mu.Lock()
	c.running = false
	c.stop = nil
	c.pipe = nil
	c.mu.Unlock()

	if fatal != nil {
		var se *pipeline.StreamError
		if errors.As(fatal, &se) {
			log.Printf("Прослушивание остановлено из-за ошибки на этапе %s: %v", se.Op, se.Err)
		} else {
			fatal = fmt.Errorf("ошибка потока: %w", fatal)
			log.Printf("Прослушивание остановлено: %v", fatal)
		}
		n.Error(fatal)
		return
	}
	log.Printf("Прослушивание остановлено")
}
