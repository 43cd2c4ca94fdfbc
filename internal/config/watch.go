package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay - пауза перед перечитыванием (редакторы пишут файл в несколько приёмов).
const reloadDelay = 100 * time.Millisecond

// Watch следит за файлом конфигурации и перечитывает его при изменении.
// onChange вызывается, если после перечитывания настройки изменились.
// Блокируется до отмены ctx.
func (c *Config) Watch(ctx context.Context, onChange func(Values)) error {
	if c.configPath == "" {
		return fmt.Errorf("путь к конфигурации не задан")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание наблюдателя: %w", err)
	}
	defer watcher.Close()

	// Следим за директорией: файл может пересоздаваться при сохранении
	dir := filepath.Dir(c.configPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("наблюдение за %s: %w", dir, err)
	}

	name := filepath.Base(c.configPath)
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Ошибка наблюдения за конфигурацией: %v", err)

		case <-timer.C:
			changed, err := c.Reload()
			if err != nil {
				log.Printf("Конфигурация не перечитана: %v", err)
				continue
			}
			if changed {
				log.Printf("Конфигурация перечитана: %s", c.configPath)
				if onChange != nil {
					onChange(c.Values())
				}
			}
		}
	}
}
