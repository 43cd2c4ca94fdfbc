package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vad-recorder/internal/config"
)

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Показать устройства ввода",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := loadBackend(config.New(cfgFile))
			if err != nil {
				return err
			}

			devices, err := backend.Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Printf("Устройства ввода (%s) не найдены\n", backend.Name())
				return nil
			}

			fmt.Printf("Устройства ввода (%s):\n", backend.Name())
			for _, d := range devices {
				mark := " "
				if d.Default {
					mark = "*"
				}
				fmt.Printf("  %s %s (каналов: %d)\n", mark, d.Name, d.Channels)
			}
			return nil
		},
	}
}
