package capture

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"vad-recorder/internal/audio"
)

// PortAudio - backend на portaudio.
type PortAudio struct{}

// Name возвращает имя backend'а.
func (PortAudio) Name() string {
	return BackendPortAudio
}

// Devices возвращает список устройств ввода.
func (PortAudio) Devices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("инициализация portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("список устройств: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Name:     d.Name,
			Default:  def != nil && d.Name == def.Name && d.HostApi == def.HostApi,
			Channels: d.MaxInputChannels,
		})
	}
	return out, nil
}

// Open выбирает устройство и формат. Подсистема portaudio остаётся
// инициализированной до Close потока.
func (PortAudio) Open(opts Options) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("инициализация portaudio: %w", err)
	}

	dev, err := paSelectDevice(opts.Device)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: audio.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      audio.SampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	s := &paStream{dev: dev, params: params}
	for _, enc := range Candidates(opts.Encoding) {
		if err := portaudio.IsFormatSupported(params, s.callback(enc)); err != nil {
			log.Printf("Формат %s не поддерживается устройством %s: %v", enc, dev.Name, err)
			continue
		}
		s.enc = enc
		return s, nil
	}

	portaudio.Terminate()
	return nil, fmt.Errorf("%w: %s, %d Гц mono", ErrNoSupportedConfig, dev.Name, audio.SampleRate)
}

func paSelectDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil || dev == nil {
			return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}
	infos := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = DeviceInfo{Name: d.Name, Channels: d.MaxInputChannels}
	}
	i := matchDevice(infos, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoInputDevice, name)
	}
	return devices[i], nil
}

type paStream struct {
	dev    *portaudio.DeviceInfo
	params portaudio.StreamParameters
	enc    audio.Encoding

	mu      sync.Mutex
	stream  *portaudio.Stream
	feed    *feeder
	scratch []int16
	closed  bool
}

func (s *paStream) Encoding() audio.Encoding {
	return s.enc
}

func (s *paStream) Device() string {
	return s.dev.Name
}

// callback возвращает типизированный callback portaudio для формата.
func (s *paStream) callback(enc audio.Encoding) interface{} {
	switch enc {
	case audio.EncodingU8:
		return func(in []uint8, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			s.checkFlags(flags)
			s.scratch = audio.AppendU8(s.scratch[:0], in)
			s.feed.samples(s.scratch)
		}
	case audio.EncodingI16:
		return func(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			s.checkFlags(flags)
			s.feed.samples(in)
		}
	default:
		return func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			s.checkFlags(flags)
			s.scratch = audio.AppendF32(s.scratch[:0], in)
			s.feed.samples(s.scratch)
		}
	}
}

// checkFlags логирует восстановимые ошибки устройства. Поток продолжается.
func (s *paStream) checkFlags(flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		log.Printf("Переполнение входного буфера %s, часть сэмплов потеряна", s.dev.Name)
	}
	if flags&portaudio.InputUnderflow != 0 {
		log.Printf("Недостаток данных на входе %s", s.dev.Name)
	}
}

func (s *paStream) Start(sink Sink, fail func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = &feeder{sink: sink, fail: fail}
	stream, err := portaudio.OpenStream(s.params, s.callback(s.enc))
	if err != nil {
		return fmt.Errorf("открытие потока %s: %w", s.dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("запуск потока %s: %w", s.dev.Name, err)
	}
	s.stream = stream
	log.Printf("Запись с %s (%s, %d Гц)", s.dev.Name, s.enc, audio.SampleRate)
	return nil
}

func (s *paStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.stream != nil {
		if stopErr := s.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("остановка потока: %w", stopErr)
		}
		s.stream.Close()
		s.stream = nil
	}
	portaudio.Terminate()
	return err
}
