// Package app содержит основную логику приложения.
package app

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"vad-recorder/internal/capture"
	"vad-recorder/internal/config"
	"vad-recorder/internal/controller"
	"vad-recorder/internal/dialog"
	"vad-recorder/internal/hotkey"
	"vad-recorder/internal/i18n"
	"vad-recorder/internal/metrics"
	"vad-recorder/internal/models"
	"vad-recorder/internal/notify"
	"vad-recorder/internal/segment"
	"vad-recorder/internal/tray"
)

// stopTimeout - сколько ждать освобождения микрофона при выходе.
const stopTimeout = 3 * time.Second

// levelInterval - период обновления уровня сигнала в трее.
const levelInterval = 500 * time.Millisecond

// Option настраивает App.
type Option func(*App)

// WithMetrics добавляет счётчики событий записи.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithBackend задаёт аудио backend вместо указанного в конфигурации.
func WithBackend(name string) Option {
	return func(a *App) { a.backendName = name }
}

// App представляет главное приложение.
type App struct {
	mu           sync.Mutex
	config       *config.Config
	backend      capture.Backend
	controller   *controller.Controller
	modelManager *models.Manager
	notifier     *notify.Notifier
	metrics      *metrics.Metrics
	backendName  string
	tray         *tray.Tray
	hotkey       *hotkey.Handler

	listening atomic.Bool // пользователь включил прослушивание
	cancel    context.CancelFunc
}

// New создаёт новое приложение.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	// Инициализируем язык интерфейса из конфига
	if uiLang := cfg.UILanguage(); uiLang != "" {
		i18n.SetLanguage(i18n.Language(uiLang))
	}

	app := &App{
		config:   cfg,
		notifier: notify.New(cfg.NotificationsEnabled()),
	}
	for _, opt := range opts {
		opt(app)
	}

	values := cfg.Values()
	if app.backendName == "" {
		app.backendName = values.Backend
	}

	backend, err := capture.New(app.backendName)
	if err != nil {
		return nil, err
	}

	dir, err := models.DefaultDir()
	if err != nil {
		return nil, err
	}
	modelManager, err := models.NewManager(dir)
	if err != nil {
		return nil, err
	}

	ctrlCfg, err := ControllerConfig(values, modelManager)
	if err != nil {
		return nil, fmt.Errorf("настройки записи: %w", err)
	}
	ctrl, err := controller.New(ctrlCfg, backend)
	if err != nil {
		return nil, err
	}

	app.backend = backend
	app.controller = ctrl
	app.modelManager = modelManager

	// Создаём обработчик горячих клавиш
	app.hotkey = hotkey.New(func() { app.toggleFromUI() })
	cfg.OnHotkeyChange(app.registerHotkey)

	// Создаём системный трей с обработчиками
	app.tray = tray.New(tray.Callbacks{
		OnListenToggle: app.toggleFromUI,
		OnNotificationsToggle: func() bool {
			enabled := app.config.ToggleNotifications()
			app.notifier.SetEnabled(enabled)
			return enabled
		},
		OnDeviceClick:    app.selectDevice,
		OnHotkeyClick:    app.selectHotkey,
		OnFolderClick:    app.openFolder,
		OnLanguageToggle: app.toggleLanguage,
		OnQuit: func() {
			app.Close()
			app.tray.Quit()
		},
	}, cfg.NotificationsEnabled())

	return app, nil
}

// Run запускает приложение. Блокирует до выхода из трея.
func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.tray.Run(func() {
		// Регистрируем горячую клавишу после инициализации трея
		a.registerHotkey(a.config.Hotkey())

		go func() {
			if err := a.config.Watch(ctx, a.applyConfig); err != nil {
				log.Printf("Изменения конфигурации не отслеживаются: %v", err)
			}
		}()

		go a.watchLevel(ctx)

		if a.config.Autostart() {
			a.toggleFromUI()
		}
	})
}

// watchLevel периодически выводит уровень микрофона в трей.
func (a *App) watchLevel(ctx context.Context) {
	ticker := time.NewTicker(levelInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.listening.Load() {
				continue
			}
			if db, ok := a.controller.Level(); ok {
				a.tray.SetLevel(db)
			}
		}
	}
}

// events собирает получателей событий записи.
func (a *App) events() controller.Notifier {
	n := controller.Multi{notify.Log{}, a.notifier, controller.Funcs{
		OnSpeechStarted: func() {
			if a.listening.Load() {
				a.tray.SetState(tray.StateSpeaking)
			}
		},
		OnSpeechEnded: func() {
			if a.listening.Load() {
				a.tray.SetState(tray.StateListening)
			}
		},
		OnError: a.onStreamError,
	}}
	if a.metrics != nil {
		n = append(n, a.metrics.Notifier())
	}
	return n
}

// toggleFromUI переключает прослушивание и обновляет трей.
func (a *App) toggleFromUI() bool {
	on := a.toggleListening()
	if on {
		a.tray.SetState(tray.StateListening)
	} else {
		a.tray.SetState(tray.StateIdle)
	}
	return on
}

// toggleListening включает или выключает прослушивание и возвращает новое состояние.
func (a *App) toggleListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listening.Load() {
		a.listening.Store(false)
		a.controller.Stop()
		a.setListening(false)
		return false
	}

	// Start сам дождётся освобождения устройства предыдущим потоком
	if err := a.controller.Start(a.events()); err != nil {
		log.Printf("Ошибка запуска прослушивания: %v", err)
		go dialog.ShowError(i18n.T("error_start"), err.Error())
		return false
	}
	a.listening.Store(true)
	a.setListening(true)
	return true
}

func (a *App) setListening(on bool) {
	a.notifier.Listening(on)
	if a.metrics != nil {
		a.metrics.SetListening(on)
	}
}

// onStreamError вызывается, когда поток остановился сам.
func (a *App) onStreamError(err error) {
	if !a.listening.CompareAndSwap(true, false) {
		return
	}
	if a.metrics != nil {
		a.metrics.SetListening(false)
	}
	a.tray.SetState(tray.StateIdle)
	go dialog.ShowError(i18n.T("error_stream"), err.Error())
}

// applyConfig применяет изменённый файл конфигурации.
// Новые параметры записи действуют со следующего включения.
func (a *App) applyConfig(v config.Values) {
	a.notifier.SetEnabled(v.Notifications)

	if v.UILanguage != "" && i18n.Language(v.UILanguage) != i18n.GetLanguage() {
		i18n.SetLanguage(i18n.Language(v.UILanguage))
		a.tray.RefreshUI()
	}

	if v.Backend != a.backendName {
		log.Printf("Смена аудио backend (%s) применится после перезапуска", v.Backend)
	}

	ctrlCfg, err := ControllerConfig(v, a.modelManager)
	if err != nil {
		log.Printf("Ошибка настроек записи: %v", err)
		return
	}
	if err := a.controller.SetConfig(ctrlCfg); err != nil {
		log.Printf("Ошибка настроек записи: %v", err)
	}
}

func (a *App) updateConfig(fn func(v *config.Values)) {
	if err := a.config.Update(fn); err != nil {
		log.Printf("Ошибка сохранения конфигурации: %v", err)
		return
	}
	a.applyConfig(a.config.Values())
}

func (a *App) selectDevice() {
	devices, err := a.backend.Devices()
	if err != nil {
		log.Printf("Ошибка получения списка устройств: %v", err)
		dialog.ShowError(i18n.T("error_devices"), err.Error())
		return
	}
	if len(devices) == 0 {
		dialog.ShowError(i18n.T("error_no_device"), a.backend.Name())
		return
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}

	device, err := dialog.SelectDevice(names, a.config.Values().Device)
	if err != nil {
		return // отмена
	}
	a.updateConfig(func(v *config.Values) { v.Device = device })
}

func (a *App) selectHotkey() {
	hk, err := dialog.SelectHotkey(a.config.Hotkey())
	if err != nil {
		return
	}
	// Перерегистрация - в registerHotkey через OnHotkeyChange
	a.config.SetHotkey(hk)
}

func (a *App) registerHotkey(hk config.HotkeyConfig) {
	if err := a.hotkey.Register(hk); err != nil {
		log.Printf("Ошибка регистрации горячей клавиши: %v", err)
		a.notifier.Info(i18n.T("error_hotkey_register"))
	}
}

func (a *App) toggleLanguage() {
	lang := i18n.Other(i18n.GetLanguage())
	i18n.SetLanguage(lang)
	a.config.SetUILanguage(string(lang))
	a.tray.RefreshUI()
}

// openFolder открывает папку с фрагментами в файловом менеджере.
func (a *App) openFolder() {
	w, err := segment.NewWriter(a.config.Values().WithEnv().OutputDir)
	if err != nil {
		dialog.ShowError(i18n.T("dialog_folder_title"), err.Error())
		return
	}
	if err := openPath(w.Dir()); err != nil {
		log.Printf("Ошибка открытия папки: %v", err)
		dialog.ShowInfo(i18n.T("dialog_folder_title"), w.Dir())
	}
}

func openPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.listening.Store(false)
	a.controller.Stop()
	done := a.controller.Done()
	a.mu.Unlock()

	if a.hotkey != nil {
		a.hotkey.Unregister()
	}

	select {
	case <-done:
	case <-time.After(stopTimeout):
		log.Printf("Микрофон не освобождён за %v", stopTimeout)
	}
}
