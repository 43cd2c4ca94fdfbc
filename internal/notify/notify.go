// Package notify предоставляет системные уведомления.
package notify

import (
	"path/filepath"
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"vad-recorder/internal/i18n"
)

const appName = "VAD Recorder"

// Notifier отправляет системные уведомления о событиях записи.
type Notifier struct {
	enabled atomic.Bool
	send    func(title, message string) error
}

// New создаёт новый Notifier.
func New(enabled bool) *Notifier {
	n := &Notifier{send: desktop}
	n.enabled.Store(enabled)
	return n
}

func desktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

// SetEnabled включает/выключает уведомления.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Enabled возвращает true, если уведомления включены.
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

// SpeechStarted - начало речи. Не показывается, чтобы не мешать говорящему.
func (n *Notifier) SpeechStarted() {}

// AudioSaved показывает имя сохранённого файла.
func (n *Notifier) AudioSaved(path string) {
	n.notify(i18n.T("notify_saved"), filepath.Base(path))
}

// SpeechEnded - конец речи, уведомление уже показано в AudioSaved.
func (n *Notifier) SpeechEnded() {}

// Error показывает уведомление об ошибке потока.
func (n *Notifier) Error(err error) {
	n.notify(i18n.T("notify_error"), err.Error())
}

// Listening показывает уведомление о включении/выключении прослушивания.
func (n *Notifier) Listening(on bool) {
	if on {
		n.notify(i18n.T("notify_listening"), i18n.T("notify_listening_hint"))
	} else {
		n.notify(i18n.T("notify_stopped"), "")
	}
}

// Info показывает информационное уведомление.
func (n *Notifier) Info(msg string) {
	if len(msg) > 100 {
		msg = msg[:100] + "..."
	}
	n.notify("", msg)
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled.Load() {
		return
	}
	// Игнорируем ошибки уведомлений - они не критичны
	if title != "" {
		_ = n.send(appName+": "+title, message)
	} else {
		_ = n.send(appName, message)
	}
}
