package playback

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/tracks"
)

const testRate = 8000

var errNoDevice = errors.New("no output device")

// fakeTransport 可控的 video 传输
type fakeTransport struct {
	mu       sync.Mutex
	now      float64
	paused   bool
	handlers map[int]func(Event)
	nextID   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{paused: true, handlers: make(map[int]func(Event))}
}

func (f *fakeTransport) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTransport) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeTransport) Subscribe(handler func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeTransport) set(now float64, paused bool) {
	f.mu.Lock()
	f.now, f.paused = now, paused
	f.mu.Unlock()
}

func (f *fakeTransport) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// emit 把事件分发给订阅者（模拟浏览器派发）
func (f *fakeTransport) emit(t EventType) {
	f.mu.Lock()
	handlers := make([]func(Event), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(NewEvent(t))
	}
}

// contextRecorder 每次调用创建新的离线上下文并记录下来
type contextRecorder struct {
	mu       sync.Mutex
	contexts []*audio.OfflineContext
	fail     bool
}

func (r *contextRecorder) factory() audio.ContextFactory {
	return func() (audio.RenderContext, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.fail {
			return nil, errNoDevice
		}
		rc := audio.NewOfflineContext(testRate, 1)
		r.contexts = append(r.contexts, rc)
		return rc, nil
	}
}

func (r *contextRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

func (r *contextRecorder) last() *audio.OfflineContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contexts) == 0 {
		return nil
	}
	return r.contexts[len(r.contexts)-1]
}

func testBuffer(t *testing.T, seconds float64) *audio.Buffer {
	t.Helper()
	data := make([]float32, int(float64(testRate)*seconds))
	for i := range data {
		data[i] = 0.25
	}
	buf, err := audio.NewBuffer(testRate, [][]float32{data})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	return buf
}

func loaded(t *testing.T, index int, seconds float64) tracks.Result {
	t.Helper()
	return tracks.Result{
		Index:  index,
		Source: "mem://track",
		Buffer: testBuffer(t, seconds),
		Gain:   1,
	}
}

func auxTracks(n int) []tracks.Track {
	list := make([]tracks.Track, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, tracks.Track{
			Index:       i,
			Source:      "mem://" + string(rune('a'+i-1)),
			Active:      true,
			GainPercent: 100,
		})
	}
	return list
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
