// Package i18n provides internationalization support.
package i18n

import "sync"

// Language represents a UI language.
type Language string

const (
	RU Language = "ru"
	EN Language = "en"
)

var (
	mu      sync.RWMutex
	current = RU // Default language
)

// Translations for all supported languages.
var translations = map[Language]map[string]string{
	RU: {
		// App
		"app_name":    "VAD Recorder",
		"app_tooltip": "VAD Recorder - запись речи с микрофона",

		// Tray menu
		"tray_idle":               "Прослушивание выключено",
		"tray_listening":          "Слушаю...",
		"tray_speaking":           "Запись речи...",
		"tray_level":              "%s (%.0f дБ)",
		"tray_listen":             "Слушать микрофон",
		"tray_listen_hint":        "Включить или выключить прослушивание",
		"tray_notifications":      "Уведомления",
		"tray_notifications_hint": "Показывать уведомления о сохранённых фрагментах",
		"tray_device":             "Микрофон...",
		"tray_device_hint":        "Выбор устройства ввода",
		"tray_hotkey":             "Горячая клавиша...",
		"tray_hotkey_hint":        "Клавиша включения прослушивания",
		"tray_folder":             "Папка записей",
		"tray_folder_hint":        "Где сохраняются фрагменты",
		"tray_language":           "English",
		"tray_language_hint":      "Switch interface to English",
		"tray_quit":               "Выход",
		"tray_quit_hint":          "Закрыть приложение",

		// Notifications
		"notify_saved":          "Фрагмент сохранён",
		"notify_error":          "Ошибка",
		"notify_listening":      "Прослушивание включено",
		"notify_listening_hint": "Фрагменты речи сохраняются автоматически",
		"notify_stopped":        "Прослушивание выключено",

		// Dialogs
		"dialog_modifiers":         "Выберите модификаторы:",
		"dialog_modifiers_title":   "Горячая клавиша - модификаторы",
		"dialog_modifier_required": "Необходимо выбрать хотя бы один модификатор",
		"dialog_key":               "Выберите клавишу:",
		"dialog_key_title":         "Горячая клавиша - клавиша",
		"dialog_device":            "Выберите микрофон:",
		"dialog_device_title":      "Устройство ввода",
		"dialog_device_default":    "По умолчанию",
		"dialog_folder_title":      "Папка записей",

		// Errors
		"error_start":           "Не удалось начать прослушивание",
		"error_stream":          "Прослушивание остановлено из-за ошибки",
		"error_no_device":       "Микрофон не найден",
		"error_devices":         "Не удалось получить список устройств",
		"error_hotkey_register": "Не удалось зарегистрировать горячую клавишу",
	},

	EN: {
		// App
		"app_name":    "VAD Recorder",
		"app_tooltip": "VAD Recorder - microphone speech recorder",

		// Tray menu
		"tray_idle":               "Listening is off",
		"tray_listening":          "Listening...",
		"tray_speaking":           "Recording speech...",
		"tray_level":              "%s (%.0f dB)",
		"tray_listen":             "Listen to microphone",
		"tray_listen_hint":        "Turn listening on or off",
		"tray_notifications":      "Notifications",
		"tray_notifications_hint": "Notify about saved segments",
		"tray_device":             "Microphone...",
		"tray_device_hint":        "Select input device",
		"tray_hotkey":             "Hotkey...",
		"tray_hotkey_hint":        "Key that toggles listening",
		"tray_folder":             "Recordings folder",
		"tray_folder_hint":        "Where segments are saved",
		"tray_language":           "Русский",
		"tray_language_hint":      "Переключить интерфейс на русский",
		"tray_quit":               "Quit",
		"tray_quit_hint":          "Close application",

		// Notifications
		"notify_saved":          "Segment saved",
		"notify_error":          "Error",
		"notify_listening":      "Listening",
		"notify_listening_hint": "Speech segments are saved automatically",
		"notify_stopped":        "Listening stopped",

		// Dialogs
		"dialog_modifiers":         "Select modifiers:",
		"dialog_modifiers_title":   "Hotkey - modifiers",
		"dialog_modifier_required": "Select at least one modifier",
		"dialog_key":               "Select key:",
		"dialog_key_title":         "Hotkey - key",
		"dialog_device":            "Select microphone:",
		"dialog_device_title":      "Input device",
		"dialog_device_default":    "Default",
		"dialog_folder_title":      "Recordings folder",

		// Errors
		"error_start":           "Could not start listening",
		"error_stream":          "Listening stopped because of an error",
		"error_no_device":       "No microphone found",
		"error_devices":         "Could not list devices",
		"error_hotkey_register": "Could not register hotkey",
	},
}

// T returns the translation for the given key.
func T(key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if strings, ok := translations[current]; ok {
		if s, ok := strings[key]; ok {
			return s
		}
	}
	// Fallback to key itself
	return key
}

// SetLanguage sets the current UI language.
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()
	current = lang
}

// GetLanguage returns the current UI language.
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// AvailableLanguages returns list of supported languages.
func AvailableLanguages() []Language {
	return []Language{RU, EN}
}

// Other returns the language the UI switches to from lang.
func Other(lang Language) Language {
	if lang == RU {
		return EN
	}
	return RU
}

// LanguageName returns display name for a language.
func LanguageName(lang Language) string {
	switch lang {
	case RU:
		return "Русский"
	case EN:
		return "English"
	default:
		return string(lang)
	}
}
