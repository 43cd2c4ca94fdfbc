package capture

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"vad-recorder/internal/audio"
)

// Malgo - backend на miniaudio (malgo).
type Malgo struct{}

// Name возвращает имя backend'а.
func (Malgo) Name() string {
	return BackendMalgo
}

func malgoLog(msg string) {
	log.Printf("miniaudio: %s", strings.TrimSpace(msg))
}

func malgoContext() (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, malgoLog)
	if err != nil {
		return nil, fmt.Errorf("инициализация miniaudio: %w", err)
	}
	return ctx, nil
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// Devices возвращает список устройств захвата.
func (Malgo) Devices() ([]DeviceInfo, error) {
	ctx, err := malgoContext()
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx)

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("список устройств: %w", err)
	}
	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			Name:     d.Name(),
			Default:  d.IsDefault != 0,
			Channels: 1,
		})
	}
	return out, nil
}

// malgoFormats - соответствие форматов miniaudio и PCM форматов pipeline.
var malgoFormats = map[audio.Encoding]malgo.FormatType{
	audio.EncodingU8:  malgo.FormatU8,
	audio.EncodingI16: malgo.FormatS16,
	audio.EncodingF32: malgo.FormatF32,
}

func encodingOf(f malgo.FormatType) audio.Encoding {
	for enc, mf := range malgoFormats {
		if mf == f {
			return enc
		}
	}
	return audio.EncodingUnknown
}

// Open выбирает устройство и инициализирует его. При автоматическом выборе
// используется родной формат устройства, а если он не U8/S16/F32 -
// miniaudio конвертирует сэмплы в F32.
func (Malgo) Open(opts Options) (Stream, error) {
	ctx, err := malgoContext()
	if err != nil {
		return nil, err
	}

	s := &malgoStream{ctx: ctx}
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Channels = audio.Channels
	cfg.SampleRate = audio.SampleRate
	cfg.Alsa.NoMMap = 1

	if opts.Device != "" {
		info, err := malgoSelectDevice(ctx, opts.Device)
		if err != nil {
			freeContext(ctx)
			return nil, err
		}
		cfg.Capture.DeviceID = info.ID.Pointer()
		s.name = info.Name()
	}

	formats := []malgo.FormatType{malgo.FormatUnknown, malgo.FormatF32}
	if opts.Encoding != audio.EncodingUnknown {
		f, ok := malgoFormats[opts.Encoding]
		if !ok {
			freeContext(ctx)
			return nil, fmt.Errorf("%w: %s", audio.ErrUnsupportedEncoding, opts.Encoding)
		}
		formats = []malgo.FormatType{f}
	}

	for _, f := range formats {
		cfg.Capture.Format = f
		dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onData})
		if err != nil {
			log.Printf("Формат %d не поддерживается: %v", f, err)
			continue
		}
		enc := encodingOf(dev.CaptureFormat())
		if enc == audio.EncodingUnknown {
			log.Printf("Родной формат устройства %d не поддерживается, запрашиваем f32", dev.CaptureFormat())
			dev.Uninit()
			continue
		}
		s.device = dev
		s.enc = enc
		if s.name == "" {
			s.name = "default"
		}
		return s, nil
	}

	freeContext(ctx)
	if len(formats) == 1 {
		return nil, fmt.Errorf("%w: формат %s", ErrNoSupportedConfig, opts.Encoding)
	}
	return nil, fmt.Errorf("%w: %d Гц mono", ErrNoSupportedConfig, audio.SampleRate)
}

func malgoSelectDevice(ctx *malgo.AllocatedContext, name string) (malgo.DeviceInfo, error) {
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}
	infos := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = DeviceInfo{Name: d.Name(), Channels: 1}
	}
	i := matchDevice(infos, name)
	if i < 0 {
		return malgo.DeviceInfo{}, fmt.Errorf("%w: %q", ErrNoInputDevice, name)
	}
	return devices[i], nil
}

type malgoStream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	enc    audio.Encoding
	name   string

	mu     sync.Mutex
	feed   *feeder
	closed bool
}

func (s *malgoStream) Encoding() audio.Encoding {
	return s.enc
}

func (s *malgoStream) Device() string {
	return s.name
}

func (s *malgoStream) onData(_, in []byte, frames uint32) {
	if frames == 0 || s.feed == nil {
		return
	}
	n := int(frames) * audio.Channels * s.enc.BytesPerSample()
	if n > len(in) {
		n = len(in)
	}
	s.feed.block(in[:n])
}

func (s *malgoStream) Start(sink Sink, fail func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = &feeder{sink: sink, fail: fail}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("запуск устройства %s: %w", s.name, err)
	}
	log.Printf("Запись с %s (%s, %d Гц)", s.name, s.enc, audio.SampleRate)
	return nil
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.device.IsStarted() {
		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("остановка устройства: %w", stopErr)
		}
	}
	s.device.Uninit()
	freeContext(s.ctx)
	return err
}
