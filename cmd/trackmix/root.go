package main

import (
	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/config"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/tracks"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "trackmix",
		Short:         "多音轨同步播放引擎",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径（.json 或 .toml）")

	loadConfig := func() (*config.AppConfig, error) {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCommand(loadConfig))
	rootCmd.AddCommand(newPlayCommand(loadConfig))
	rootCmd.AddCommand(newDevicesCommand())
	rootCmd.AddCommand(newToneCommand())
	return rootCmd
}

type configLoader func() (*config.AppConfig, error)

func deviceConfig(cfg *config.AppConfig) audio.DeviceConfig {
	return audio.DeviceConfig{
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.Channels,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}
}

func newLoader(cfg *config.AppConfig) *tracks.Loader {
	return tracks.NewLoader(tracks.NewFetcher(cfg.Loader.MaxBytes), audio.WAVDecoder{}, tracks.LoaderConfig{
		Device:      deviceConfig(cfg),
		Concurrency: cfg.Loader.Concurrency,
		Timeout:     cfg.Loader.Timeout(),
	})
}
