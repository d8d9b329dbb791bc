package bridge

import (
	"math"
	"sync"

	"github.com/liuscraft/trackmix/internal/playback"
)

// RemoteTransport 镜像 webview 中 video 元素上报的传输状态
type RemoteTransport struct {
	mu          sync.Mutex
	currentTime float64
	paused      bool
	handlers    map[uint64]func(playback.Event)
	nextID      uint64
}

func NewRemoteTransport() *RemoteTransport {
	return &RemoteTransport{
		paused:   true,
		handlers: make(map[uint64]func(playback.Event)),
	}
}

func (t *RemoteTransport) CurrentTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentTime
}

func (t *RemoteTransport) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *RemoteTransport) Subscribe(handler func(playback.Event)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}
}

// Update 先更新镜像状态再派发事件，订阅者读到的总是事件发生时的时间
func (t *RemoteTransport) Update(ev playback.EventType, currentTime float64, paused bool) {
	t.mu.Lock()
	if !math.IsNaN(currentTime) && !math.IsInf(currentTime, 0) && currentTime >= 0 {
		t.currentTime = currentTime
	}
	t.paused = paused
	handlers := make([]func(playback.Event), 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	event := playback.NewEvent(ev)
	for _, h := range handlers {
		h(event)
	}
}
