package app

import (
	"fmt"
	"log"

	"vad-recorder/internal/audio"
	"vad-recorder/internal/config"
	"vad-recorder/internal/controller"
	"vad-recorder/internal/models"
	"vad-recorder/internal/vad"
)

// ControllerConfig переводит настройки приложения в параметры записи.
// Если путь к модели не задан, используется скачанная модель по умолчанию.
func ControllerConfig(v config.Values, manager *models.Manager) (controller.Config, error) {
	v = v.WithEnv()

	enc, err := audio.ParseEncoding(v.SampleFormat)
	if err != nil {
		return controller.Config{}, err
	}

	kind := vad.Kind(v.Classifier)
	switch kind {
	case vad.KindAuto, vad.KindSilero, vad.KindEnergy:
	case "":
		kind = vad.KindAuto
	default:
		return controller.Config{}, fmt.Errorf("неизвестный классификатор: %s", v.Classifier)
	}

	modelPath := v.ModelPath
	if modelPath == "" && manager != nil && kind != vad.KindEnergy {
		if info, ok := models.GetModel(models.DefaultModelID()); ok && manager.IsDownloaded(info) {
			modelPath = manager.GetModelPath(info)
		} else {
			log.Printf("Модель Silero VAD не скачана, выполните: vad-recorder models download")
		}
	}

	th := v.Thresholds()
	if err := th.Validate(); err != nil {
		return controller.Config{}, err
	}

	return controller.Config{
		Device:   v.Device,
		Encoding: enc,
		Classifier: vad.Config{
			Kind:       kind,
			ModelPath:  modelPath,
			RuntimeLib: v.OnnxRuntimeLib,
		},
		Thresholds: th,
		OutputDir:  v.OutputDir,
	}, nil
}
