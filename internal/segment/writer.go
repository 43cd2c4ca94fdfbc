// Package segment записывает фрагменты речи в WAV файлы.
package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"vad-recorder/internal/audio"
)

const (
	// filePrefix - префикс имени файла фрагмента.
	filePrefix = "vad_"
	// wavPCM - код формата PCM в заголовке WAV.
	wavPCM = 1
	// maxNameAttempts - сколько суффиксов пробовать при совпадении имени.
	maxNameAttempts = 100
)

// Segment - открытый фрагмент речи.
type Segment struct {
	Started time.Time // время начала, миллисекунды - идентификатор фрагмента
	Samples int       // количество записанных сэмплов
	Path    string    // абсолютный путь к файлу

	file *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
}

// ID возвращает идентификатор фрагмента (unix-время начала в миллисекундах).
func (s *Segment) ID() int64 {
	return s.Started.UnixMilli()
}

// Writer создаёт WAV файлы (mono, 16kHz, PCM16) во временной директории.
// Одновременно открыт не более одного фрагмента - это обеспечивает конечный автомат.
type Writer struct {
	dir string
}

// NewWriter создаёт Writer. Пустой dir означает системную временную директорию.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("путь к директории фрагментов: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("создание директории фрагментов: %w", err)
	}
	return &Writer{dir: abs}, nil
}

// Dir возвращает директорию, в которую пишутся фрагменты.
func (w *Writer) Dir() string {
	return w.dir
}

// Open создаёт новый файл фрагмента с именем из метки времени.
func (w *Writer) Open(ts time.Time) (*Segment, error) {
	f, path, err := w.create(ts)
	if err != nil {
		return nil, err
	}

	return &Segment{
		Started: ts,
		Path:    path,
		file:    f,
		enc:     wav.NewEncoder(f, audio.SampleRate, audio.BitsPerSample, audio.Channels, wavPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: audio.Channels, SampleRate: audio.SampleRate},
			SourceBitDepth: audio.BitsPerSample,
		},
	}, nil
}

// create открывает файл vad_<ms>.wav, а если имя занято - vad_<ms>_N.wav.
func (w *Writer) create(ts time.Time) (*os.File, string, error) {
	base := fmt.Sprintf("%s%d", filePrefix, ts.UnixMilli())
	for i := 0; i < maxNameAttempts; i++ {
		name := base + ".wav"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.wav", base, i)
		}
		path := filepath.Join(w.dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("создание файла фрагмента: %w", err)
		}
	}
	return nil, "", fmt.Errorf("создание файла фрагмента: имя %s занято", base)
}

// Append дописывает сэмплы в фрагмент в порядке вызовов.
func (w *Writer) Append(seg *Segment, samples []int16) error {
	if seg == nil || seg.enc == nil {
		return errors.New("запись в закрытый фрагмент")
	}
	if len(samples) == 0 {
		return nil
	}

	data := seg.buf.Data[:0]
	for _, s := range samples {
		data = append(data, int(s))
	}
	seg.buf.Data = data

	if err := seg.enc.Write(seg.buf); err != nil {
		return fmt.Errorf("запись фрагмента %s: %w", seg.Path, err)
	}
	seg.Samples += len(samples)
	return nil
}

// Finalize дописывает заголовок, сбрасывает данные на диск и закрывает файл.
// Возвращает абсолютный путь к готовому файлу. При ошибке файл удаляется.
func (w *Writer) Finalize(seg *Segment) (string, error) {
	if seg == nil || seg.enc == nil {
		return "", errors.New("завершение закрытого фрагмента")
	}
	defer seg.detach()

	if err := seg.enc.Close(); err != nil {
		seg.discard()
		return "", fmt.Errorf("заголовок фрагмента %s: %w", seg.Path, err)
	}
	if err := seg.file.Sync(); err != nil {
		seg.discard()
		return "", fmt.Errorf("сброс фрагмента %s на диск: %w", seg.Path, err)
	}
	if err := seg.file.Close(); err != nil {
		os.Remove(seg.Path)
		return "", fmt.Errorf("закрытие фрагмента %s: %w", seg.Path, err)
	}
	return seg.Path, nil
}

// Abort закрывает и удаляет недописанный фрагмент.
func (w *Writer) Abort(seg *Segment) error {
	if seg == nil || seg.file == nil {
		return nil
	}
	defer seg.detach()

	if err := seg.discard(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("удаление фрагмента %s: %w", seg.Path, err)
	}
	return nil
}

// discard закрывает файл и удаляет его с диска.
func (s *Segment) discard() error {
	s.file.Close()
	return os.Remove(s.Path)
}

func (s *Segment) detach() {
	s.enc = nil
	s.file = nil
	s.buf = nil
}
