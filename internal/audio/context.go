package audio

import (
	"errors"
	"sync"
)

var ErrContextClosed = errors.New("render context closed")

type ContextState int

const (
	ContextSuspended ContextState = iota
	ContextRunning
	ContextClosed
)

func (s ContextState) String() string {
	switch s {
	case ContextSuspended:
		return "Suspended"
	case ContextRunning:
		return "Running"
	case ContextClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// RenderContext 渲染上下文：持有输出设备和共享混音级
type RenderContext interface {
	SampleRate() int
	Channels() int
	State() ContextState
	Resume() error
	Suspend() error
	Close() error
	Connect(v Voice) error
	Disconnect(v Voice)
}

// ContextFactory 创建渲染上下文；失败视为"尚未就绪"
type ContextFactory func() (RenderContext, error)

// DeviceConfig 输出设备参数
type DeviceConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate:      48000,
		Channels:        2,
		FramesPerBuffer: 1024,
	}
}

// OfflineContext 不连接设备的渲染上下文，由调用方通过 Pull 驱动渲染
type OfflineContext struct {
	mu         sync.Mutex
	bus        *Bus
	sampleRate int
	channels   int
	state      ContextState
}

func NewOfflineContext(sampleRate, channels int) *OfflineContext {
	return &OfflineContext{
		bus:        NewBus(),
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (c *OfflineContext) SampleRate() int { return c.sampleRate }

func (c *OfflineContext) Channels() int { return c.channels }

func (c *OfflineContext) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *OfflineContext) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return ErrContextClosed
	}
	c.state = ContextRunning
	return nil
}

func (c *OfflineContext) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return ErrContextClosed
	}
	c.state = ContextSuspended
	return nil
}

func (c *OfflineContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ContextClosed
	c.bus.Clear()
	return nil
}

func (c *OfflineContext) Connect(v Voice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return ErrContextClosed
	}
	c.bus.Add(v)
	return nil
}

func (c *OfflineContext) Disconnect(v Voice) {
	c.bus.Remove(v)
}

// Voices 当前连接的 Voice 数量
func (c *OfflineContext) Voices() int {
	return c.bus.Len()
}

// Pull 渲染 frames 帧；挂起状态下输出静音且不推进播放位置
func (c *OfflineContext) Pull(frames int) [][]float32 {
	out := make([][]float32, c.channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	if c.State() != ContextRunning {
		return out
	}
	c.bus.Render(out)
	return out
}
