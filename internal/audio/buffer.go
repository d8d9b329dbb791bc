package audio

import (
	"errors"
	"fmt"
)

// Buffer 解码完成的音轨，平面 float32 样本，创建后不可变
type Buffer struct {
	sampleRate int
	samples    [][]float32
	frames     int
}

// NewBuffer 接管 samples 的所有权，调用方之后不得再修改
func NewBuffer(sampleRate int, samples [][]float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil, errors.New("buffer needs at least one channel")
	}
	frames := len(samples[0])
	for ch, data := range samples {
		if len(data) != frames {
			return nil, fmt.Errorf("channel %d has %d frames, want %d", ch, len(data), frames)
		}
	}
	return &Buffer{sampleRate: sampleRate, samples: samples, frames: frames}, nil
}

func (b *Buffer) SampleRate() int { return b.sampleRate }

func (b *Buffer) Channels() int { return len(b.samples) }

func (b *Buffer) Frames() int { return b.frames }

// Duration 时长（秒）
func (b *Buffer) Duration() float64 {
	return float64(b.frames) / float64(b.sampleRate)
}

// sample 读取第 ch 声道第 i 帧；输出声道多于源声道时循环复用
func (b *Buffer) sample(ch, i int) float32 {
	return b.samples[ch%len(b.samples)][i]
}
