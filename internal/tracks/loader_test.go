package tracks

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockFetcher 按源地址返回预置数据；blocking 中的源会一直阻塞到 ctx 取消
type mockFetcher struct {
	mu       sync.Mutex
	data     map[string][]byte
	errs     map[string]error
	blocking map[string]bool
	calls    []string
}

func (f *mockFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, source)
	data, err, block := f.data[source], f.errs[source], f.blocking[source]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func testWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	pcm := &audio.PCM{SampleRate: 8000, Channels: 1, Samples: make([]int16, int(8000*seconds))}
	if err := audio.EncodeWAV(&buf, pcm); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return buf.Bytes()
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logging.Replace(zap.New(core))
	t.Cleanup(func() { logging.Replace(nil) })
	return recorded
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) indexes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.results))
	for _, r := range c.results {
		out = append(out, r.Index)
	}
	sort.Ints(out)
	return out
}

func newTestLoader(f Fetcher) *Loader {
	return NewLoader(f, nil, LoaderConfig{
		Device:      audio.DeviceConfig{SampleRate: 8000, Channels: 2},
		Concurrency: 2,
	})
}

func TestLoaderIsolatesFailures(t *testing.T) {
	f := &mockFetcher{
		data: map[string][]byte{
			"a.wav": testWAV(t, 1),
			"b.wav": []byte("corrupt"),
			"c.wav": testWAV(t, 2),
		},
	}
	c := &collector{}
	wait := newTestLoader(f).Load(context.Background(), []Request{
		{Index: 1, Source: "a.wav", Gain: 1},
		{Index: 2, Source: "b.wav", Gain: 1},
		{Index: 3, Source: "c.wav", Gain: 0.5},
	}, c.deliver)
	wait()

	got := c.indexes()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("expected tracks 1 and 3 to load, got %v", got)
	}
	for _, r := range c.results {
		if r.Index == 3 && r.Gain != 0.5 {
			t.Fatalf("expected gain snapshot 0.5, got %v", r.Gain)
		}
		if r.Buffer.Channels() != 2 {
			t.Fatalf("expected buffer converted to device channels, got %d", r.Buffer.Channels())
		}
	}
}

func TestLoaderFetchErrorIsLogged(t *testing.T) {
	logs := observeLogs(t)
	f := &mockFetcher{errs: map[string]error{"x.wav": errors.New("connection refused")}}
	c := &collector{}
	newTestLoader(f).Load(context.Background(), []Request{{Index: 1, Source: "x.wav"}}, c.deliver)()

	if len(c.indexes()) != 0 {
		t.Fatal("failed track must not be delivered")
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Fatalf("expected 1 error log, got %d", n)
	}
}

func TestLoaderCancellationIsSilent(t *testing.T) {
	logs := observeLogs(t)
	f := &mockFetcher{
		data:     map[string][]byte{"fast.wav": testWAV(t, 0.1)},
		blocking: map[string]bool{"slow.wav": true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	wait := newTestLoader(f).Load(ctx, []Request{
		{Index: 1, Source: "slow.wav"},
		{Index: 2, Source: "slow.wav"},
	}, c.deliver)

	time.Sleep(20 * time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loader did not stop after cancellation")
	}
	if len(c.indexes()) != 0 {
		t.Fatal("cancelled loads must not deliver results")
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 0 {
		t.Fatalf("cancellation must not log errors, got %d", n)
	}
}

func TestLoaderCancelledBeforeStart(t *testing.T) {
	f := &mockFetcher{data: map[string][]byte{"a.wav": testWAV(t, 0.1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	newTestLoader(f).Load(ctx, []Request{{Index: 1, Source: "a.wav"}}, c.deliver)()
	if len(c.indexes()) != 0 {
		t.Fatal("expected nothing delivered for an already cancelled session")
	}
}

func TestLoaderTimeoutIsFailure(t *testing.T) {
	f := &mockFetcher{blocking: map[string]bool{"slow.wav": true}}
	l := NewLoader(f, nil, LoaderConfig{Timeout: 10 * time.Millisecond})
	c := &collector{}
	l.Load(context.Background(), []Request{{Index: 4, Source: "slow.wav"}}, c.deliver)()
	if len(c.indexes()) != 0 {
		t.Fatal("timed out track must not be delivered")
	}
}

func TestIsCancellation(t *testing.T) {
	live := context.Background()
	dead, cancel := context.WithCancel(context.Background())
	cancel()

	if isCancellation(live, errors.New("boom")) {
		t.Error("plain error on live session is a failure")
	}
	if isCancellation(live, context.DeadlineExceeded) {
		t.Error("per-track timeout is a failure")
	}
	if !isCancellation(dead, errors.New("read: use of closed connection")) {
		t.Error("any error after session cancel is a cancellation")
	}
}
