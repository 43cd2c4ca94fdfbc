// Package icons рисует иконки трея при запуске.
package icons

import (
	"bytes"
	"image/color"
	"log"
	"sync"

	"github.com/fogleman/gg"
)

// Size - размер иконки в пикселях.
const Size = 64

var (
	colorIdle      = color.RGBA{128, 128, 128, 255} // Серый - прослушивание выключено
	colorListening = color.RGBA{60, 170, 90, 255}   // Зелёный - ждём речь
	colorSpeaking  = color.RGBA{220, 50, 50, 255}   // Красный - идёт запись фрагмента
)

var (
	once                      sync.Once
	idle, listening, speaking []byte
)

func load() {
	once.Do(func() {
		idle = mustRender(colorIdle)
		listening = mustRender(colorListening)
		speaking = mustRender(colorSpeaking)
	})
}

// Idle - иконка при выключенном прослушивании.
func Idle() []byte {
	load()
	return idle
}

// Listening - иконка при включённом прослушивании.
func Listening() []byte {
	load()
	return listening
}

// Speaking - иконка во время записи фрагмента.
func Speaking() []byte {
	load()
	return speaking
}

func mustRender(c color.Color) []byte {
	data, err := Render(c)
	if err != nil {
		log.Printf("Ошибка генерации иконки: %v", err)
		return nil
	}
	return data
}

// Render рисует микрофон заданного цвета и возвращает PNG.
func Render(c color.Color) ([]byte, error) {
	dc := gg.NewContext(Size, Size)
	dc.SetColor(c)

	// Капсула микрофона
	dc.DrawRoundedRectangle(Size/2-10, 6, 20, 32, 10)
	dc.Fill()

	// Дуга держателя
	dc.SetLineWidth(4)
	dc.DrawArc(Size/2, 28, 16, 0, gg.Radians(180))
	dc.Stroke()

	// Ножка и основание
	dc.DrawRectangle(Size/2-2, 44, 4, 10)
	dc.Fill()
	dc.DrawRoundedRectangle(Size/2-12, 54, 24, 4, 2)
	dc.Fill()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
