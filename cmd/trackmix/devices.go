package main

import (
	"fmt"
	"strconv"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "列出 PortAudio 输出设备并给出 audio 配置建议",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize PortAudio: %w", err)
			}
			defer portaudio.Terminate()

			out := cmd.OutOrStdout()
			hostAPIs, err := portaudio.HostApis()
			if err != nil {
				return fmt.Errorf("failed to get host APIs: %w", err)
			}
			fmt.Fprintf(out, "Found %d Host API(s):\n", len(hostAPIs))
			for i, api := range hostAPIs {
				fmt.Fprintf(out, "  [%d] %s (devices: %d)\n", i, api.Name, len(api.Devices))
			}
			fmt.Fprintln(out)

			defaultOutput, err := portaudio.DefaultOutputDevice()
			if err != nil {
				fmt.Fprintf(out, "Default Output Device: (error: %v)\n", err)
			} else {
				fmt.Fprintf(out, "Default Output Device: %s\n", defaultOutput.Name)
			}
			fmt.Fprintln(out)

			devices, err := portaudio.Devices()
			if err != nil {
				return fmt.Errorf("failed to get devices: %w", err)
			}
			rows := make([][]string, 0, len(devices))
			for i, dev := range devices {
				if dev.MaxOutputChannels == 0 {
					continue
				}
				name := dev.Name
				if defaultOutput != nil && dev.Name == defaultOutput.Name {
					name += " [DEFAULT]"
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					name,
					strconv.Itoa(dev.MaxOutputChannels),
					fmt.Sprintf("%.0f", dev.DefaultSampleRate),
					fmt.Sprintf("%.1f / %.1f",
						dev.DefaultLowOutputLatency.Seconds()*1000,
						dev.DefaultHighOutputLatency.Seconds()*1000),
				})
			}
			fmt.Fprintln(out, "=== Output Devices ===")
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "Channels", "Rate (Hz)", "Latency low/high (ms)"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(out)

			if defaultOutput != nil {
				rate := int(defaultOutput.DefaultSampleRate)
				channels := defaultOutput.MaxOutputChannels
				if channels > 2 {
					channels = 2
				}
				// 缓冲至少覆盖设备的低延迟
				frames := recommendedFrames(rate, defaultOutput.DefaultLowOutputLatency.Seconds())
				fmt.Fprintln(out, "=== Recommended [audio] Config ===")
				fmt.Fprintf(out, "sample_rate = %d\nchannels = %d\nframes_per_buffer = %d\n", rate, channels, frames)
			}
			return nil
		},
	}
}

// recommendedFrames 取不小于 latency 对应帧数的 2 的幂，范围 [256, 4096]
func recommendedFrames(rate int, latency float64) int {
	need := int(float64(rate) * latency)
	frames := 256
	for frames < need && frames < 4096 {
		frames *= 2
	}
	return frames
}
