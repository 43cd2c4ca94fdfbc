package controller

import "vad-recorder/internal/segmenter"

// Имена событий.
const (
	EventSpeechStarted = "speech-started"
	EventAudioSaved    = "audio-saved"
	EventSpeechEnded   = "speech-ended"
	EventError         = "error"
)

// Notifier получает события о границах фрагментов и фатальные ошибки потока.
// Методы вызываются из callback'а аудиопотока и не должны блокироваться надолго.
type Notifier interface {
	segmenter.Events
	Error(err error)
}

// Multi рассылает события нескольким получателям по порядку.
type Multi []Notifier

func (m Multi) SpeechStarted() {
	for _, n := range m {
		n.SpeechStarted()
	}
}

func (m Multi) AudioSaved(path string) {
	for _, n := range m {
		n.AudioSaved(path)
	}
}

func (m Multi) SpeechEnded() {
	for _, n := range m {
		n.SpeechEnded()
	}
}

func (m Multi) Error(err error) {
	for _, n := range m {
		n.Error(err)
	}
}

// Funcs - Notifier из функций. Пустые поля пропускаются.
type Funcs struct {
	OnSpeechStarted func()
	OnAudioSaved    func(path string)
	OnSpeechEnded   func()
	OnError         func(err error)
}

func (f Funcs) SpeechStarted() {
	if f.OnSpeechStarted != nil {
		f.OnSpeechStarted()
	}
}

func (f Funcs) AudioSaved(path string) {
	if f.OnAudioSaved != nil {
		f.OnAudioSaved(path)
	}
}

func (f Funcs) SpeechEnded() {
	if f.OnSpeechEnded != nil {
		f.OnSpeechEnded()
	}
}

func (f Funcs) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}
