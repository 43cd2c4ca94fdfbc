package notify

import (
	"log"

	"vad-recorder/internal/controller"
)

// Log пишет события записи в лог.
type Log struct{}

func (Log) SpeechStarted() {
	log.Printf("Событие %s", controller.EventSpeechStarted)
}

func (Log) AudioSaved(path string) {
	log.Printf("Событие %s: %s", controller.EventAudioSaved, path)
}

func (Log) SpeechEnded() {
	log.Printf("Событие %s", controller.EventSpeechEnded)
}

func (Log) Error(err error) {
	log.Printf("Событие %s: %v", controller.EventError, err)
}
