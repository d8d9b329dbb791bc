package audio

import "testing"

// constBuffer 每个样本都是 value 的单声道缓冲区
func constBuffer(t *testing.T, rate int, seconds float64, value float32) *Buffer {
	t.Helper()
	data := make([]float32, int(float64(rate)*seconds))
	for i := range data {
		data[i] = value
	}
	buf, err := NewBuffer(rate, [][]float32{data})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	return buf
}

type fakeTransport struct {
	paused bool
}

func (f *fakeTransport) Paused() bool { return f.paused }

func offlineFactory(rc *OfflineContext) ContextFactory {
	return func() (RenderContext, error) { return rc, nil }
}
