package audio

import "sync"

// Bus 共享的混音输出级：所有已连接 Voice 叠加后裁剪到 [-1, 1]
type Bus struct {
	mu     sync.Mutex
	voices map[Voice]struct{}
}

func NewBus() *Bus {
	return &Bus{voices: make(map[Voice]struct{})}
}

func (b *Bus) Add(v Voice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voices[v] = struct{}{}
}

func (b *Bus) Remove(v Voice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.voices, v)
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.voices)
}

// Render 作为输出回调使用；播放完毕的 Voice 会被移除
func (b *Bus) Render(out [][]float32) {
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] = 0
		}
	}

	b.mu.Lock()
	for v := range b.voices {
		if !v.Render(out) {
			delete(b.voices, v)
		}
	}
	b.mu.Unlock()

	for ch := range out {
		for i, s := range out[ch] {
			if s > 1.0 {
				out[ch][i] = 1.0
			} else if s < -1.0 {
				out[ch][i] = -1.0
			}
		}
	}
}
