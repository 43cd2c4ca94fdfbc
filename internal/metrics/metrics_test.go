package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"vad-recorder/internal/pipeline"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := New(mp)
	require.NoError(t, err)
	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sum(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "ожидался Sum[int64], получен %T", m.Data)
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecorder_Segments(t *testing.T) {
	m, reader := newTestMetrics(t)
	rec := m.Notifier()

	clock := time.Unix(100, 0)
	rec.now = func() time.Time { return clock }

	rec.SpeechStarted()
	clock = clock.Add(1500 * time.Millisecond)
	rec.AudioSaved("/tmp/vad_1.wav")
	rec.SpeechEnded()

	assert.Equal(t, int64(1), sum(t, findMetric(t, reader, "vad.speech.starts")))
	assert.Equal(t, int64(1), sum(t, findMetric(t, reader, "vad.segments")))

	hist := findMetric(t, reader, "vad.speech.duration")
	require.NotNil(t, hist)
	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)
	assert.InDelta(t, 1.5, data.DataPoints[0].Sum, 1e-9)
}

func TestRecorder_ErrorsByOp(t *testing.T) {
	m, reader := newTestMetrics(t)
	rec := m.Notifier()

	rec.Error(&pipeline.StreamError{Op: pipeline.OpClassify, Err: errors.New("x")})
	rec.Error(errors.New("y"))

	metric := findMetric(t, reader, "vad.stream.errors")
	require.NotNil(t, metric)
	data := metric.Data.(metricdata.Sum[int64])

	byOp := map[string]int64{}
	for _, dp := range data.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("op"))
		byOp[op.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{pipeline.OpClassify: 1, "unknown": 1}, byOp)
}

func TestSetListening(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.SetListening(true)
	m.SetListening(false)
	m.SetListening(true)
	assert.Equal(t, int64(1), sum(t, findMetric(t, reader, "vad.listening")))
}

func TestProvider_Handler(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	m, err := New(p.MeterProvider)
	require.NoError(t, err)
	m.Notifier().AudioSaved("/tmp/vad_1.wav")

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vad_segments")
}
