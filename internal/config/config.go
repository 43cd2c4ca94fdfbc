// Package config предоставляет конфигурацию приложения с сохранением в файл.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"vad-recorder/internal/segmenter"
)

// Modifier представляет модификатор клавиши.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super" // Win/Cmd
)

// Key представляет клавишу.
type Key string

const (
	KeySpace  Key = "space"
	KeyReturn Key = "return"
	KeyTab    Key = "tab"
	KeyA      Key = "a"
	KeyB      Key = "b"
	KeyC      Key = "c"
	KeyD      Key = "d"
	KeyE      Key = "e"
	KeyF      Key = "f"
	KeyG      Key = "g"
	KeyH      Key = "h"
	KeyI      Key = "i"
	KeyJ      Key = "j"
	KeyK      Key = "k"
	KeyL      Key = "l"
	KeyM      Key = "m"
	KeyN      Key = "n"
	KeyO      Key = "o"
	KeyP      Key = "p"
	KeyQ      Key = "q"
	KeyR      Key = "r"
	KeyS      Key = "s"
	KeyT      Key = "t"
	KeyU      Key = "u"
	KeyV      Key = "v"
	KeyW      Key = "w"
	KeyX      Key = "x"
	KeyY      Key = "y"
	KeyZ      Key = "z"
	KeyF1     Key = "f1"
	KeyF2     Key = "f2"
	KeyF3     Key = "f3"
	KeyF4     Key = "f4"
	KeyF5     Key = "f5"
	KeyF6     Key = "f6"
	KeyF7     Key = "f7"
	KeyF8     Key = "f8"
	KeyF9     Key = "f9"
	KeyF10    Key = "f10"
	KeyF11    Key = "f11"
	KeyF12    Key = "f12"
)

// HotkeyConfig хранит настройки горячей клавиши.
type HotkeyConfig struct {
	Modifiers []Modifier `json:"modifiers"`
	Key       Key        `json:"key"`
}

// String возвращает строковое представление горячей клавиши.
func (h HotkeyConfig) String() string {
	result := ""
	for _, m := range h.Modifiers {
		if result != "" {
			result += "+"
		}
		result += string(m)
	}
	if result != "" {
		result += "+"
	}
	result += string(h.Key)
	return result
}

// Values - содержимое файла конфигурации.
type Values struct {
	Backend        string       `json:"backend"`                   // portaudio | malgo
	Device         string       `json:"device,omitempty"`          // подстрока имени устройства
	SampleFormat   string       `json:"sample_format"`             // auto | u8 | i16 | f32
	Classifier     string       `json:"classifier"`                // auto | silero | energy
	ModelPath      string       `json:"model_path,omitempty"`      // путь к silero_vad.onnx
	OnnxRuntimeLib string       `json:"onnxruntime_lib,omitempty"` // путь к libonnxruntime
	StartThreshold float32      `json:"start_threshold"`
	EndThreshold   float32      `json:"end_threshold"`
	OutputDir      string       `json:"output_dir,omitempty"` // пусто - временная директория
	Notifications  bool         `json:"notifications"`
	UILanguage     string       `json:"ui_language,omitempty"`
	Hotkey         HotkeyConfig `json:"hotkey"`
	Autostart      bool         `json:"autostart"` // начинать прослушивание при запуске
}

// Defaults возвращает настройки по умолчанию.
func Defaults() Values {
	return Values{
		Backend:        "portaudio",
		SampleFormat:   "auto",
		Classifier:     "auto",
		StartThreshold: segmenter.DefaultStartThreshold,
		EndThreshold:   segmenter.DefaultEndThreshold,
		Notifications:  true,
		UILanguage:     "ru",
		Hotkey: HotkeyConfig{
			Modifiers: []Modifier{ModCtrl, ModShift},
			Key:       KeyL,
		},
		Autostart: true,
	}
}

// Thresholds возвращает пороги автомата разбиения.
func (v Values) Thresholds() segmenter.Thresholds {
	return segmenter.Thresholds{Start: v.StartThreshold, End: v.EndThreshold}
}

// Config хранит настройки приложения.
type Config struct {
	mu             sync.RWMutex
	values         Values
	configPath     string
	onHotkeyChange func(HotkeyConfig)
}

// DefaultPath возвращает путь к config.json рядом с бинарником.
func DefaultPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	// Резолвим симлинки
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(execPath), "config.json")
}

// New создаёт конфигурацию, загружая из файла или с настройками по умолчанию.
// Пустой path - config.json рядом с бинарником.
func New(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}
	c := &Config{
		values:     Defaults(),
		configPath: path,
	}

	// Пытаемся загрузить конфигурацию
	if v, err := c.read(); err == nil {
		c.values = v
	} else if !os.IsNotExist(err) {
		log.Printf("Ошибка чтения конфигурации %s: %v", path, err)
	}

	return c
}

// Path возвращает путь к файлу конфигурации.
func (c *Config) Path() string {
	return c.configPath
}

// read читает файл поверх настроек по умолчанию и проверяет значения.
func (c *Config) read() (Values, error) {
	if c.configPath == "" {
		return Values{}, os.ErrNotExist
	}

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return Values{}, err
	}

	v := Defaults()
	if err := json.Unmarshal(data, &v); err != nil {
		return Values{}, fmt.Errorf("разбор JSON: %w", err)
	}
	if v.Hotkey.Key == "" {
		v.Hotkey = Defaults().Hotkey
	}
	if err := v.Thresholds().Validate(); err != nil {
		return Values{}, err
	}
	return v, nil
}

// save сохраняет конфигурацию в файл.
func (c *Config) save() {
	if c.configPath == "" {
		return
	}

	data, err := json.MarshalIndent(c.values, "", "  ")
	if err != nil {
		return
	}

	if err := os.WriteFile(c.configPath, data, 0644); err != nil {
		log.Printf("Ошибка сохранения конфигурации: %v", err)
	}
}

// Reload перечитывает файл. Возвращает true, если настройки изменились.
func (c *Config) Reload() (bool, error) {
	v, err := c.read()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	changed := !reflect.DeepEqual(c.values, v)
	hotkeyChanged := !reflect.DeepEqual(c.values.Hotkey, v.Hotkey)
	c.values = v
	callback := c.onHotkeyChange
	c.mu.Unlock()

	if hotkeyChanged && callback != nil {
		callback(v.Hotkey)
	}
	return changed, nil
}

// Values возвращает копию текущих настроек.
func (c *Config) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := c.values
	v.Hotkey.Modifiers = append([]Modifier(nil), c.values.Hotkey.Modifiers...)
	return v
}

// Update изменяет настройки функцией fn и сохраняет их.
// Некорректные пороги не сохраняются.
func (c *Config) Update(fn func(v *Values)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.values
	fn(&v)
	if err := v.Thresholds().Validate(); err != nil {
		return err
	}
	c.values = v
	c.save()
	return nil
}

// SetNotifications включает/выключает уведомления.
func (c *Config) SetNotifications(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.Notifications = enabled
	c.save()
}

// ToggleNotifications переключает состояние уведомлений.
func (c *Config) ToggleNotifications() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.Notifications = !c.values.Notifications
	c.save()
	return c.values.Notifications
}

// NotificationsEnabled возвращает true если уведомления включены.
func (c *Config) NotificationsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Notifications
}

// Autostart возвращает true если прослушивание начинается при запуске.
func (c *Config) Autostart() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Autostart
}

// Hotkey возвращает текущую горячую клавишу.
func (c *Config) Hotkey() HotkeyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Hotkey
}

// SetHotkey устанавливает горячую клавишу.
func (c *Config) SetHotkey(hk HotkeyConfig) {
	c.mu.Lock()
	c.values.Hotkey = hk
	callback := c.onHotkeyChange
	c.save()
	c.mu.Unlock()

	if callback != nil {
		callback(hk)
	}
}

// OnHotkeyChange устанавливает callback для изменения горячей клавиши.
func (c *Config) OnHotkeyChange(fn func(HotkeyConfig)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHotkeyChange = fn
}

// AvailableModifiers возвращает список доступных модификаторов.
func AvailableModifiers() []Modifier {
	return []Modifier{ModCtrl, ModShift, ModAlt, ModSuper}
}

// AvailableKeys возвращает список доступных клавиш.
func AvailableKeys() []Key {
	return []Key{
		KeySpace, KeyReturn, KeyTab,
		KeyA, KeyB, KeyC, KeyD, KeyE, KeyF, KeyG, KeyH, KeyI, KeyJ, KeyK, KeyL, KeyM,
		KeyN, KeyO, KeyP, KeyQ, KeyR, KeyS, KeyT, KeyU, KeyV, KeyW, KeyX, KeyY, KeyZ,
		KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6, KeyF7, KeyF8, KeyF9, KeyF10, KeyF11, KeyF12,
	}
}

// UILanguage возвращает язык интерфейса.
func (c *Config) UILanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.UILanguage
}

// SetUILanguage устанавливает язык интерфейса.
func (c *Config) SetUILanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.UILanguage = lang
	c.save()
}
