package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/bridge"
	"github.com/liuscraft/trackmix/internal/playback"
	"github.com/liuscraft/trackmix/internal/tracks"
	"github.com/spf13/cobra"
)

func newPlayCommand(loadConfig configLoader) *cobra.Command {
	var (
		videoFile string
		start     float64
		seekTo    float64
		phase     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play <track.wav>...",
		Short: "用模拟的 video 时钟同步播放本地 WAV 音轨（验证工具）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			curve, err := audio.CurveByName(cfg.Gain.Curve)
			if err != nil {
				return err
			}

			fmt.Println("=== trackmix 同步播放验证 ===")
			fmt.Println()

			clock := newSimClock()
			engine := playback.New(playback.Options{
				Transport:    clock,
				Loader:       newLoader(cfg),
				Factory:      audio.PortaudioFactory(deviceConfig(cfg)),
				Curve:        curve,
				GainThrottle: cfg.Gain.Throttle(),
			})
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() { _ = engine.Run(ctx) }()
			defer engine.Stop()

			list, err := localTracks(args)
			if err != nil {
				return err
			}

			fmt.Println("1. 加载音轨...")
			if err := engine.SetTracks(list); err != nil {
				return err
			}
			if videoFile != "" {
				el, err := newFileElement(videoFile, clock.Paused)
				if err != nil {
					return fmt.Errorf("读取 video 音频失败: %w", err)
				}
				if err := engine.AttachElement(el); err != nil {
					return err
				}
				fmt.Printf("   - 默认音轨: %s\n", videoFile)
			}
			for _, t := range list[1:] {
				fmt.Printf("   - 音轨 %d: %s\n", t.Index, t.Source)
			}
			fmt.Println()

			fmt.Printf("2. 从 %.1fs 开始播放（音轨可能仍在加载）...\n", start)
			clock.play(start)
			printStatus(engine)
			sleep(ctx, phase)

			fmt.Println("3. 音轨 1 音量降为 50%...")
			list[1].GainPercent = 50
			if err := engine.SetTracks(list); err != nil {
				return err
			}
			sleep(ctx, phase)

			fmt.Printf("4. 跳转到 %.1fs...\n", seekTo)
			clock.seek(seekTo)
			printStatus(engine)
			sleep(ctx, phase)

			fmt.Println("5. 暂停")
			clock.pause()
			printStatus(engine)
			sleep(ctx, 500*time.Millisecond)

			fmt.Println()
			fmt.Println("=== 验证完成 ===")
			fmt.Println()
			fmt.Println("预期效果:")
			fmt.Println("  - 阶段2: 所有音轨与模拟时钟同步播放，晚加载的音轨从当时的时间点加入")
			fmt.Println("  - 阶段3: 音轨 1 音量明显降低，播放不中断")
			fmt.Println("  - 阶段4: 所有音轨从新位置重新开始")
			fmt.Println("  - 阶段5: 全部静音")
			return nil
		},
	}
	cmd.Flags().StringVar(&videoFile, "video", "", "作为 video 原生音频的 WAV 文件（默认音轨）")
	cmd.Flags().Float64Var(&start, "start", 0, "开始播放的位置（秒）")
	cmd.Flags().Float64Var(&seekTo, "seek", 10, "阶段4跳转到的位置（秒）")
	cmd.Flags().DurationVar(&phase, "phase", 3*time.Second, "每个阶段的持续时间")
	return cmd
}

// localTracks 第一项是占位的默认音轨，其余为参数中的文件
func localTracks(files []string) ([]tracks.Track, error) {
	list := []tracks.Track{{Index: 0, Active: true, GainPercent: 100}}
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		list = append(list, tracks.Track{
			Index:       i + 1,
			Source:      "file://" + abs,
			Active:      true,
			GainPercent: 100,
		})
	}
	return list, nil
}

func printStatus(engine *playback.Engine) {
	st, err := engine.Status()
	if err != nil {
		return
	}
	fmt.Printf("   状态: %s，已加载 %d/%d，活跃节点 %v\n", st.State, st.Ready.Loaded, st.Ready.Total, st.ActiveNodes)
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// simClock 模拟 video 元素的传输时钟：播放时按墙钟前进
type simClock struct {
	*bridge.RemoteTransport

	mu        sync.Mutex
	base      float64
	startedAt time.Time
	running   bool
}

func newSimClock() *simClock {
	return &simClock{RemoteTransport: bridge.NewRemoteTransport()}
}

func (c *simClock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

func (c *simClock) now() float64 {
	if !c.running {
		return c.base
	}
	return c.base + time.Since(c.startedAt).Seconds()
}

func (c *simClock) play(at float64) {
	c.mu.Lock()
	c.base, c.startedAt, c.running = at, time.Now(), true
	c.mu.Unlock()
	c.Update(playback.EventPlay, at, false)
	c.Update(playback.EventPlaying, at, false)
}

func (c *simClock) seek(to float64) {
	c.mu.Lock()
	running := c.running
	c.base, c.startedAt = to, time.Now()
	c.mu.Unlock()
	c.Update(playback.EventSeeking, to, !running)
	c.Update(playback.EventSeeked, to, !running)
}

func (c *simClock) pause() {
	c.mu.Lock()
	c.base = c.now()
	c.running = false
	at := c.base
	c.mu.Unlock()
	c.Update(playback.EventPause, at, true)
}

// fileElement 以 WAV 文件充当 video 元素的原生音频；paused 为真时不产出样本
type fileElement struct {
	path   string
	pcm    *audio.PCM
	paused func() bool
	mu     sync.Mutex
	opened bool
}

func newFileElement(path string, paused func() bool) (*fileElement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pcm, err := audio.WAVDecoder{}.Decode(data)
	if err != nil {
		return nil, err
	}
	return &fileElement{path: path, pcm: pcm, paused: paused}, nil
}

func (e *fileElement) ID() string { return "file:" + e.path }

func (e *fileElement) CaptureAudio() (io.Reader, audio.StreamFormat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	format := audio.StreamFormat{SampleRate: e.pcm.SampleRate, Channels: e.pcm.Channels}
	if e.opened {
		return nil, format, fmt.Errorf("element %s already captured", e.path)
	}
	e.opened = true

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, e.pcm.Samples); err != nil {
		return nil, format, err
	}
	return &loopReader{data: buf.Bytes(), paused: e.paused}, format, nil
}

type loopReader struct {
	data   []byte
	pos    int
	paused func() bool
}

func (lr *loopReader) Read(p []byte) (n int, err error) {
	if len(lr.data) == 0 {
		return 0, io.EOF
	}
	if lr.paused != nil && lr.paused() {
		return 0, nil
	}
	for len(p) > 0 {
		if lr.pos >= len(lr.data) {
			lr.pos = 0
		}
		copied := copy(p, lr.data[lr.pos:])
		lr.pos += copied
		p = p[copied:]
		n += copied
	}
	return n, nil
}
