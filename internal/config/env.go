package config

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Переменные окружения, переопределяющие пути из файла конфигурации.
const (
	EnvModelPath  = "VAD_RECORDER_MODEL_PATH"
	EnvRuntimeLib = "VAD_RECORDER_ONNXRUNTIME_LIB"
	EnvOutputDir  = "VAD_RECORDER_OUTPUT_DIR"
)

// LoadEnv загружает переменные из .env файлов (по умолчанию ./.env).
// Уже заданные переменные окружения не перезаписываются.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Ошибка чтения %s: %v", f, err)
		}
	}
}

// WithEnv возвращает копию настроек с путями из переменных окружения.
func (v Values) WithEnv() Values {
	if s := os.Getenv(EnvModelPath); s != "" {
		v.ModelPath = s
	}
	if s := os.Getenv(EnvRuntimeLib); s != "" {
		v.OnnxRuntimeLib = s
	}
	if s := os.Getenv(EnvOutputDir); s != "" {
		v.OutputDir = s
	}
	return v
}
