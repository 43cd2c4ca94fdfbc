// Package models управляет моделями детектора речи.
package models

// ModelInfo информация о модели.
type ModelInfo struct {
	ID       string // Уникальный идентификатор: "silero-v5"
	Name     string // Отображаемое имя
	Filename string // Имя файла: "silero_vad.onnx"
	URL      string // URL для скачивания
	Size     int64  // Размер в байтах (для прогресса)
}

// Registry все доступные модели.
var Registry = []ModelInfo{
	{
		ID:       "silero-v5",
		Name:     "Silero VAD v5",
		Filename: "silero_vad.onnx",
		URL:      "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad.onnx",
		Size:     2 * 1024 * 1024,
	},
	// opset 15, только 16kHz - для старых сборок onnxruntime
	{
		ID:       "silero-v5-op15",
		Name:     "Silero VAD v5 (16kHz, opset 15)",
		Filename: "silero_vad_16k_op15.onnx",
		URL:      "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad_16k_op15.onnx",
		Size:     1 * 1024 * 1024,
	},
}

// DefaultModelID модель по умолчанию.
func DefaultModelID() string {
	return "silero-v5"
}

// GetModel возвращает модель по ID.
func GetModel(id string) (ModelInfo, bool) {
	for _, m := range Registry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
