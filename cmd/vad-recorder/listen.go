package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vad-recorder/internal/app"
	"vad-recorder/internal/config"
	"vad-recorder/internal/controller"
	"vad-recorder/internal/metrics"
	"vad-recorder/internal/notify"
)

func listenCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Слушать микрофон без трея до Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "адрес для /metrics в формате Prometheus, например :9464")
	return cmd
}

func runListen(ctx context.Context, metricsAddr string) error {
	cfg := config.New(cfgFile)

	backend, err := loadBackend(cfg)
	if err != nil {
		return err
	}

	manager, err := newManager()
	if err != nil {
		return err
	}

	ctrlCfg, err := app.ControllerConfig(cfg.Values(), manager)
	if err != nil {
		return fmt.Errorf("настройки записи: %w", err)
	}
	ctrl, err := controller.New(ctrlCfg, backend)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фатальная ошибка потока завершает команду
	streamErr := make(chan error, 1)
	events := controller.Multi{notify.Log{}, controller.Funcs{
		OnError: func(err error) { streamErr <- err },
	}}

	if metricsAddr != "" {
		provider, err := metrics.NewProvider()
		if err != nil {
			return err
		}
		m, err := metrics.New(provider.MeterProvider)
		if err != nil {
			return err
		}
		events = append(events, m.Notifier())
		m.SetListening(true)
		defer m.SetListening(false)

		g.Go(func() error { return provider.Serve(ctx, metricsAddr) })
	}

	if err := ctrl.Start(events); err != nil {
		return err
	}

	g.Go(func() error {
		if err := cfg.Watch(ctx, func(v config.Values) {
			c, err := app.ControllerConfig(v, manager)
			if err != nil {
				log.Printf("Ошибка настроек записи: %v", err)
				return
			}
			if err := ctrl.SetConfig(c); err == nil {
				log.Printf("Настройки обновлены, применятся после перезапуска прослушивания")
			}
		}); err != nil {
			log.Printf("Изменения конфигурации не отслеживаются: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			<-ctrl.Done()
			return nil
		case err := <-streamErr:
			return err
		}
	})

	return g.Wait()
}
