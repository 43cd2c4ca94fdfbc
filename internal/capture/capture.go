// Package capture открывает поток с микрофона через portaudio или malgo.
//
// Backend выбирает устройство и согласовывает формат сэмплов, Stream
// передаёт данные из callback'а устройства в Sink.
package capture

import (
	"errors"
	"fmt"
	"strings"

	"vad-recorder/internal/audio"
)

var (
	// ErrNoInputDevice - нет устройства ввода (или нет устройства с заданным именем).
	ErrNoInputDevice = errors.New("устройство ввода не найдено")
	// ErrNoSupportedConfig - устройство не поддерживает 16kHz mono ни в одном формате.
	ErrNoSupportedConfig = errors.New("нет поддерживаемой конфигурации устройства")
)

// Имена backend'ов в конфиге.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

// Sink получает данные из callback'а устройства. Реализуется pipeline.Pipeline.
type Sink interface {
	ProcessBlock(raw []byte) error
	ProcessSamples(samples []int16) error
}

// Options - параметры открытия потока.
type Options struct {
	Device   string         // подстрока имени устройства, пусто - устройство по умолчанию
	Encoding audio.Encoding // EncodingUnknown - выбрать автоматически
}

// DeviceInfo описывает устройство ввода.
type DeviceInfo struct {
	Name     string
	Default  bool
	Channels int
}

// Stream - открытый, но ещё не запущенный поток устройства.
type Stream interface {
	// Encoding возвращает согласованный формат сэмплов.
	Encoding() audio.Encoding
	// Device возвращает имя выбранного устройства.
	Device() string
	// Start запускает поток. fail вызывается из callback'а при первой ошибке Sink,
	// после этого данные в Sink не передаются.
	Start(sink Sink, fail func(error)) error
	// Close останавливает поток и освобождает устройство.
	Close() error
}

// Backend - аудиоподсистема.
type Backend interface {
	Name() string
	Open(opts Options) (Stream, error)
	Devices() ([]DeviceInfo, error)
}

// New возвращает backend по имени. Пустое имя - portaudio.
func New(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", BackendPortAudio:
		return PortAudio{}, nil
	case BackendMalgo:
		return Malgo{}, nil
	default:
		return nil, fmt.Errorf("неизвестный аудио backend: %s", name)
	}
}

// Candidates возвращает форматы в порядке попыток согласования.
func Candidates(preferred audio.Encoding) []audio.Encoding {
	if preferred != audio.EncodingUnknown {
		return []audio.Encoding{preferred}
	}
	return []audio.Encoding{audio.EncodingF32, audio.EncodingI16, audio.EncodingU8}
}

// matchDevice возвращает индекс первого устройства ввода, имя которого
// содержит name (без учёта регистра). -1 если не найдено.
func matchDevice(devices []DeviceInfo, name string) int {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, d := range devices {
		if d.Channels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return i
		}
	}
	return -1
}

// feeder передаёт данные в Sink до первой ошибки.
type feeder struct {
	sink   Sink
	fail   func(error)
	failed bool
}

func (f *feeder) samples(s []int16) {
	if f.failed {
		return
	}
	if err := f.sink.ProcessSamples(s); err != nil {
		f.stop(err)
	}
}

func (f *feeder) block(raw []byte) {
	if f.failed {
		return
	}
	if err := f.sink.ProcessBlock(raw); err != nil {
		f.stop(err)
	}
}

func (f *feeder) stop(err error) {
	f.failed = true
	if f.fail != nil {
		f.fail(err)
	}
}
