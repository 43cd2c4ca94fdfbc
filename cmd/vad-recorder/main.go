// VAD Recorder - приложение, которое слушает микрофон и сохраняет фрагменты
// речи в WAV файлы.
//
// Без аргументов работает в системном трее. Подкоманда listen запускает
// запись без графического интерфейса.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"vad-recorder/internal/app"
	"vad-recorder/internal/capture"
	"vad-recorder/internal/config"
	"vad-recorder/internal/hotkey"
)

// Version устанавливается при сборке через -ldflags.
var Version = "dev"

// Общие флаги подкоманд
var (
	cfgFile     string
	backendName string
)

func main() {
	log.SetFlags(log.Ltime | log.Lshortfile)
	config.LoadEnv()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vad-recorder",
		Short:   "Запись фрагментов речи с микрофона",
		Version: Version,
		Long: `VAD Recorder слушает микрофон, определяет речь детектором Silero VAD
и сохраняет каждый фрагмент речи в отдельный WAV файл (16 кГц, 16 бит, моно).

Без подкоманды запускается в системном трее.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			log.Printf("VAD Recorder %s запускается...", Version)
			// Запускаем в главном потоке (требование для macOS и некоторых GUI)
			hotkey.RunOnMainThread(runTray)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "файл конфигурации (по умолчанию config.json рядом с бинарником)")
	cmd.PersistentFlags().StringVar(&backendName, "backend", "", "аудио backend: portaudio или malgo (по умолчанию из конфигурации)")

	cmd.AddCommand(listenCmd())
	cmd.AddCommand(devicesCmd())
	cmd.AddCommand(modelsCmd())
	return cmd
}

// loadBackend возвращает backend из флага --backend или из конфигурации.
func loadBackend(cfg *config.Config) (capture.Backend, error) {
	name := backendName
	if name == "" {
		name = cfg.Values().Backend
	}
	return capture.New(name)
}

func runTray() {
	cfg := config.New(cfgFile)

	application, err := app.New(cfg, app.WithBackend(backendName))
	if err != nil {
		log.Printf("Ошибка инициализации: %v", err)
		os.Exit(1)
	}

	log.Printf("Приложение запущено. %s включает прослушивание.", cfg.Hotkey())
	application.Run()
}
