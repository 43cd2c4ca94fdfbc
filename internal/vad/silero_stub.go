//go:build !cgo

package vad

// Silero недоступен без cgo.
type Silero struct{}

// NewSilero всегда возвращает ErrUnavailable в сборке без cgo.
func NewSilero(modelPath, libPath string) (*Silero, error) {
	return nil, ErrUnavailable
}

func (s *Silero) Predict(frame []int16) (float32, error) { return 0, ErrUnavailable }
func (s *Silero) Reset()                                 {}
func (s *Silero) Close() error                           { return nil }
