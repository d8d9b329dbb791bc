package audio

import (
	"errors"
	"io"
)

// Voice 渲染上下文中的一路发声单元
type Voice interface {
	// Render 把样本叠加到 out（平面格式），返回 false 表示已播放完毕
	Render(out [][]float32) bool
}

// bufferVoice 从 Buffer 指定位置开始播放，只在 Bus 锁内被访问
type bufferVoice struct {
	buf  *Buffer
	gain *GainStage
	pos  float64
	step float64
}

func newBufferVoice(buf *Buffer, gain *GainStage, offset float64, outputRate int) *bufferVoice {
	step := 1.0
	if outputRate > 0 {
		step = float64(buf.SampleRate()) / float64(outputRate)
	}
	return &bufferVoice{
		buf:  buf,
		gain: gain,
		pos:  offset * float64(buf.SampleRate()),
		step: step,
	}
}

func (v *bufferVoice) Render(out [][]float32) bool {
	if len(out) == 0 {
		return v.remaining()
	}
	volume := float32(v.gain.Value())
	frames := len(out[0])
	for i := 0; i < frames; i++ {
		idx := int(v.pos)
		if idx >= v.buf.Frames() {
			return false
		}
		if volume != 0 {
			for ch := range out {
				out[ch][i] += v.buf.sample(ch, idx) * volume
			}
		}
		v.pos += v.step
	}
	return v.remaining()
}

func (v *bufferVoice) remaining() bool {
	return int(v.pos) < v.buf.Frames()
}

// streamVoice 从 16-bit PCM 交错流读取样本，用于 video 元素的原生音轨
type streamVoice struct {
	stream   io.Reader
	gain     *GainStage
	channels int
	scratch  []byte
}

func newStreamVoice(stream io.Reader, channels int, gain *GainStage) *streamVoice {
	if channels <= 0 {
		channels = 1
	}
	return &streamVoice{stream: stream, gain: gain, channels: channels}
}

func (v *streamVoice) Render(out [][]float32) bool {
	if v.stream == nil || len(out) == 0 {
		return false
	}
	frames := len(out[0])
	need := frames * v.channels * 2
	if cap(v.scratch) < need {
		v.scratch = make([]byte, need)
	}
	data := v.scratch[:need]

	// 数据源可能暂时为空（返回 0, nil），不能在渲染回调里阻塞等待
	n := 0
	var err error
	for n < need {
		var m int
		m, err = v.stream.Read(data[n:])
		n += m
		if err != nil || m == 0 {
			break
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}

	volume := float32(v.gain.Value())
	available := n / (2 * v.channels)
	for i := 0; i < available && i < frames; i++ {
		for ch := range out {
			src := ch % v.channels
			off := (i*v.channels + src) * 2
			sample := int16(data[off]) | int16(data[off+1])<<8
			out[ch][i] += float32(sample) / 32768.0 * volume
		}
	}
	return !errors.Is(err, io.EOF)
}
