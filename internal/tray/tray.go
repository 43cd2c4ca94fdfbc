// Package tray предоставляет системный трей с меню.
package tray

import (
	"fmt"

	"github.com/getlantern/systray"

	"vad-recorder/internal/i18n"
	"vad-recorder/internal/icons"
)

// State представляет состояние записи для отображения в трее.
type State int

const (
	StateIdle      State = iota // прослушивание выключено
	StateListening              // ждём речь
	StateSpeaking               // пишется фрагмент
)

// Callbacks содержит обработчики событий меню.
type Callbacks struct {
	OnListenToggle        func() bool
	OnNotificationsToggle func() bool
	OnDeviceClick         func()
	OnHotkeyClick         func()
	OnFolderClick         func()
	OnLanguageToggle      func()
	OnQuit                func()
}

// Tray управляет иконкой в системном трее.
type Tray struct {
	callbacks     Callbacks
	notifications bool
	state         State

	status    *systray.MenuItem
	listen    *systray.MenuItem
	notifyOn  *systray.MenuItem
	deviceBtn *systray.MenuItem
	hotkeyBtn *systray.MenuItem
	folderBtn *systray.MenuItem
	langBtn   *systray.MenuItem
	quitBtn   *systray.MenuItem
}

// New создаёт новый Tray.
func New(callbacks Callbacks, notifications bool) *Tray {
	return &Tray{
		callbacks:     callbacks,
		notifications: notifications,
	}
}

// Run запускает системный трей. Блокирующая функция.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(icons.Idle())
	systray.SetTitle(i18n.T("app_name"))
	systray.SetTooltip(i18n.T("app_tooltip"))

	// Статус
	t.status = systray.AddMenuItem(i18n.T("tray_idle"), "")
	t.status.Disable()

	systray.AddSeparator()

	t.listen = systray.AddMenuItemCheckbox(i18n.T("tray_listen"), i18n.T("tray_listen_hint"), false)
	t.notifyOn = systray.AddMenuItemCheckbox(i18n.T("tray_notifications"), i18n.T("tray_notifications_hint"), t.notifications)

	systray.AddSeparator()

	t.deviceBtn = systray.AddMenuItem(i18n.T("tray_device"), i18n.T("tray_device_hint"))
	t.hotkeyBtn = systray.AddMenuItem(i18n.T("tray_hotkey"), i18n.T("tray_hotkey_hint"))
	t.folderBtn = systray.AddMenuItem(i18n.T("tray_folder"), i18n.T("tray_folder_hint"))
	t.langBtn = systray.AddMenuItem(i18n.T("tray_language"), i18n.T("tray_language_hint"))

	systray.AddSeparator()

	// Выход
	t.quitBtn = systray.AddMenuItem(i18n.T("tray_quit"), i18n.T("tray_quit_hint"))

	// Обработка событий меню
	go t.handleMenuEvents()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func (t *Tray) handleMenuEvents() {
	for {
		select {
		case <-t.listen.ClickedCh:
			if t.callbacks.OnListenToggle != nil {
				setChecked(t.listen, t.callbacks.OnListenToggle())
			}

		case <-t.notifyOn.ClickedCh:
			if t.callbacks.OnNotificationsToggle != nil {
				setChecked(t.notifyOn, t.callbacks.OnNotificationsToggle())
			}

		case <-t.deviceBtn.ClickedCh:
			call(t.callbacks.OnDeviceClick)

		case <-t.hotkeyBtn.ClickedCh:
			call(t.callbacks.OnHotkeyClick)

		case <-t.folderBtn.ClickedCh:
			call(t.callbacks.OnFolderClick)

		case <-t.langBtn.ClickedCh:
			call(t.callbacks.OnLanguageToggle)

		// Выход
		case <-t.quitBtn.ClickedCh:
			call(t.callbacks.OnQuit)
			systray.Quit()
		}
	}
}

// SetState обновляет иконку и строку статуса.
func (t *Tray) SetState(state State) {
	t.state = state

	var icon []byte
	var title string
	switch state {
	case StateListening:
		icon, title = icons.Listening(), i18n.T("tray_listening")
	case StateSpeaking:
		icon, title = icons.Speaking(), i18n.T("tray_speaking")
	default:
		icon, title = icons.Idle(), i18n.T("tray_idle")
	}

	systray.SetIcon(icon)
	systray.SetTooltip(i18n.T("app_name") + " - " + title)
	if t.status != nil {
		t.status.SetTitle(title)
	}
	if t.listen != nil {
		setChecked(t.listen, state != StateIdle)
	}
}

// SetLevel показывает уровень входного сигнала в строке статуса.
func (t *Tray) SetLevel(db float64) {
	var title string
	switch t.state {
	case StateListening:
		title = i18n.T("tray_listening")
	case StateSpeaking:
		title = i18n.T("tray_speaking")
	default:
		return
	}
	title = fmt.Sprintf(i18n.T("tray_level"), title, db)
	systray.SetTooltip(i18n.T("app_name") + " - " + title)
	if t.status != nil {
		t.status.SetTitle(title)
	}
}

func (t *Tray) onExit() {
	// Cleanup при выходе
}

// Quit закрывает системный трей.
func (t *Tray) Quit() {
	systray.Quit()
}

// RefreshUI обновляет все тексты меню на текущем языке.
func (t *Tray) RefreshUI() {
	systray.SetTitle(i18n.T("app_name"))
	t.SetState(t.state)

	items := []struct {
		item        *systray.MenuItem
		title, hint string
	}{
		{t.listen, "tray_listen", "tray_listen_hint"},
		{t.notifyOn, "tray_notifications", "tray_notifications_hint"},
		{t.deviceBtn, "tray_device", "tray_device_hint"},
		{t.hotkeyBtn, "tray_hotkey", "tray_hotkey_hint"},
		{t.folderBtn, "tray_folder", "tray_folder_hint"},
		{t.langBtn, "tray_language", "tray_language_hint"},
		{t.quitBtn, "tray_quit", "tray_quit_hint"},
	}
	for _, it := range items {
		if it.item == nil {
			continue
		}
		it.item.SetTitle(i18n.T(it.title))
		it.item.SetTooltip(i18n.T(it.hint))
	}
}
