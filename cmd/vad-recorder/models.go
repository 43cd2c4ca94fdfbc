package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vad-recorder/internal/models"
)

func newManager() (*models.Manager, error) {
	dir, err := models.DefaultDir()
	if err != nil {
		return nil, err
	}
	return models.NewManager(dir)
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Управление моделями Silero VAD",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Показать доступные модели",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager()
			if err != nil {
				return err
			}
			fmt.Printf("Директория моделей: %s\n", manager.ModelsDir())
			for _, info := range models.Registry {
				status := "не скачана"
				if manager.IsDownloaded(info) {
					status = "скачана"
				}
				def := ""
				if info.ID == models.DefaultModelID() {
					def = " (по умолчанию)"
				}
				fmt.Printf("  %-16s %s%s, ~%s, %s\n", info.ID, info.Name, def,
					humanize.IBytes(uint64(info.Size)), status)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download [id]",
		Short: "Скачать модель (по умолчанию " + models.DefaultModelID() + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := models.DefaultModelID()
			if len(args) == 1 {
				id = args[0]
			}
			info, ok := models.GetModel(id)
			if !ok {
				return fmt.Errorf("неизвестная модель: %s", id)
			}

			manager, err := newManager()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return download(ctx, manager, info)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить скачанную модель",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := models.GetModel(args[0])
			if !ok {
				return fmt.Errorf("неизвестная модель: %s", args[0])
			}
			manager, err := newManager()
			if err != nil {
				return err
			}
			if err := manager.Delete(info); err != nil {
				return err
			}
			fmt.Printf("Модель %s удалена\n", info.ID)
			return nil
		},
	})

	return cmd
}

func download(ctx context.Context, manager *models.Manager, info models.ModelInfo) error {
	progress := make(chan models.Progress, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case p := <-progress:
				fmt.Printf("\r%s: %s / %s", info.ID,
					humanize.IBytes(uint64(p.Downloaded)), humanize.IBytes(uint64(p.Total)))
				if p.Done {
					fmt.Println()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := manager.Download(ctx, info, progress); err != nil {
		fmt.Println()
		return err
	}
	<-finished
	fmt.Printf("Модель сохранена: %s\n", manager.GetModelPath(info))
	return nil
}
