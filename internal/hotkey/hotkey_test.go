package hotkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.design/x/hotkey"

	"vad-recorder/internal/config"
)

func TestPress_Debounce(t *testing.T) {
	var toggles int
	h := New(func() { toggles++ })

	start := time.Unix(1000, 0)
	assert.True(t, h.press(start))
	assert.False(t, h.press(start.Add(100*time.Millisecond)))
	assert.True(t, h.press(start.Add(400*time.Millisecond)))
	assert.Equal(t, 2, toggles)
}

func TestConvert(t *testing.T) {
	mods, key := convert(config.HotkeyConfig{
		Modifiers: []config.Modifier{config.ModCtrl, config.ModShift, "hyper"},
		Key:       config.KeyL,
	})
	assert.Equal(t, []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, mods)
	assert.Equal(t, hotkey.KeyL, key)

	_, key = convert(config.HotkeyConfig{Key: "pause"})
	assert.Equal(t, hotkey.KeySpace, key)
}

func TestKeyMapCoversConfig(t *testing.T) {
	for _, k := range config.AvailableKeys() {
		_, ok := keyMap[k]
		assert.True(t, ok, "клавиша %s не сопоставлена", k)
	}
	for _, m := range config.AvailableModifiers() {
		_, ok := modifierMap[m]
		assert.True(t, ok, "модификатор %s не сопоставлен", m)
	}
}
