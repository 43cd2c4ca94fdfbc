// Package metrics считает события записи через OpenTelemetry и отдаёт их
// в формате Prometheus.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"vad-recorder/internal/controller"
	"vad-recorder/internal/pipeline"
)

const meterName = "vad-recorder"

// speechBuckets - границы гистограммы длительности речи, в секундах.
var speechBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 300}

// Metrics - инструменты метрик приложения.
type Metrics struct {
	Segments       metric.Int64Counter     // сохранённые фрагменты
	SpeechStarts   metric.Int64Counter     // начала речи
	StreamErrors   metric.Int64Counter     // фатальные ошибки потока, атрибут op
	SpeechDuration metric.Float64Histogram // длительность речи от начала до сохранения
	Listening      metric.Int64UpDownCounter
}

// New создаёт инструменты в заданном MeterProvider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Segments, err = m.Int64Counter("vad.segments",
		metric.WithDescription("Сохранённые фрагменты речи."),
	); err != nil {
		return nil, err
	}
	if met.SpeechStarts, err = m.Int64Counter("vad.speech.starts",
		metric.WithDescription("Обнаруженные начала речи."),
	); err != nil {
		return nil, err
	}
	if met.StreamErrors, err = m.Int64Counter("vad.stream.errors",
		metric.WithDescription("Фатальные ошибки аудиопотока по этапу."),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("vad.speech.duration",
		metric.WithDescription("Длительность фрагментов речи."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Listening, err = m.Int64UpDownCounter("vad.listening",
		metric.WithDescription("1 если прослушивание включено."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Notifier возвращает получателя событий, обновляющего метрики.
func (m *Metrics) Notifier() *Recorder {
	return &Recorder{m: m, now: time.Now}
}

// Recorder реализует controller.Notifier поверх метрик.
type Recorder struct {
	m   *Metrics
	now func() time.Time

	mu      sync.Mutex
	started time.Time
}

var _ controller.Notifier = (*Recorder)(nil)

func (r *Recorder) SpeechStarted() {
	r.mu.Lock()
	r.started = r.now()
	r.mu.Unlock()
	r.m.SpeechStarts.Add(context.Background(), 1)
}

func (r *Recorder) AudioSaved(path string) {
	ctx := context.Background()
	r.m.Segments.Add(ctx, 1)

	r.mu.Lock()
	started := r.started
	r.started = time.Time{}
	r.mu.Unlock()
	if !started.IsZero() {
		r.m.SpeechDuration.Record(ctx, r.now().Sub(started).Seconds())
	}
}

func (r *Recorder) SpeechEnded() {}

func (r *Recorder) Error(err error) {
	op := "unknown"
	var se *pipeline.StreamError
	if errors.As(err, &se) {
		op = se.Op
	}
	r.m.StreamErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
}

// SetListening отмечает включение и выключение прослушивания.
func (m *Metrics) SetListening(on bool) {
	delta := int64(-1)
	if on {
		delta = 1
	}
	m.Listening.Add(context.Background(), delta)
}
