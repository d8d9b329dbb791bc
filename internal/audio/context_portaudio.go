package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/trackmix/internal/logging"
)

type portaudioContext struct {
	mu     sync.Mutex
	bus    *Bus
	stream *portaudio.Stream
	config DeviceConfig
	state  ContextState
}

// NewPortaudioContext 打开默认输出设备；创建后处于挂起状态，Resume 才开始出声
func NewPortaudioContext(config DeviceConfig) (RenderContext, error) {
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}
	if config.Channels <= 0 {
		config.Channels = 2
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	c := &portaudioContext{
		bus:    NewBus(),
		config: config,
		state:  ContextSuspended,
	}
	stream, err := portaudio.OpenDefaultStream(0, config.Channels, float64(config.SampleRate), config.FramesPerBuffer, c.bus.Render)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	c.stream = stream
	return c, nil
}

// PortaudioFactory 返回按 config 打开设备的 ContextFactory
func PortaudioFactory(config DeviceConfig) ContextFactory {
	return func() (RenderContext, error) {
		return NewPortaudioContext(config)
	}
}

func (c *portaudioContext) SampleRate() int { return c.config.SampleRate }

func (c *portaudioContext) Channels() int { return c.config.Channels }

func (c *portaudioContext) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *portaudioContext) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case ContextClosed:
		return ErrContextClosed
	case ContextRunning:
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	c.state = ContextRunning
	return nil
}

func (c *portaudioContext) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case ContextClosed:
		return ErrContextClosed
	case ContextSuspended:
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("stop output stream: %w", err)
	}
	c.state = ContextSuspended
	return nil
}

func (c *portaudioContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return nil
	}
	if c.state == ContextRunning {
		if err := c.stream.Stop(); err != nil {
			logging.Errorf("RenderContext: failed to stop stream: %v", err)
		}
	}
	err := c.stream.Close()
	c.state = ContextClosed
	c.bus.Clear()
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("close output stream: %w", err)
	}
	return nil
}

func (c *portaudioContext) Connect(v Voice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return ErrContextClosed
	}
	c.bus.Add(v)
	return nil
}

func (c *portaudioContext) Disconnect(v Voice) {
	c.bus.Remove(v)
}
