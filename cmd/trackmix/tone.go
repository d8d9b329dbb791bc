package main

import (
	"fmt"
	"math"
	"os"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/spf13/cobra"
)

func newToneCommand() *cobra.Command {
	var (
		freq     float64
		duration float64
		rate     int
		channels int
	)

	cmd := &cobra.Command{
		Use:   "tone <output.wav>",
		Short: "生成正弦波测试音轨",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if freq <= 0 || duration <= 0 || rate <= 0 || channels <= 0 {
				return fmt.Errorf("freq, duration, rate and channels must be positive")
			}
			filename := args[0]
			fmt.Fprintf(cmd.OutOrStdout(), "生成音频文件: %s (频率: %.0fHz, 时长: %.1f秒)\n", filename, freq, duration)

			file, err := os.Create(filename)
			if err != nil {
				return err
			}
			defer file.Close()

			if err := audio.EncodeWAV(file, sineWave(freq, duration, rate, channels)); err != nil {
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().Float64Var(&freq, "freq", 440, "频率（Hz）")
	cmd.Flags().Float64Var(&duration, "duration", 2, "时长（秒）")
	cmd.Flags().IntVar(&rate, "rate", 48000, "采样率")
	cmd.Flags().IntVar(&channels, "channels", 2, "声道数")
	return cmd
}

func sineWave(freq, duration float64, rate, channels int) *audio.PCM {
	frames := int(duration * float64(rate))
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(rate)
		v := int16(32767 * 0.5 * math.Sin(2*math.Pi*freq*t))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return &audio.PCM{SampleRate: rate, Channels: channels, Samples: samples}
}
