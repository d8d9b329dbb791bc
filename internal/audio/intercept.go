package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/liuscraft/trackmix/internal/logging"
)

var ErrAlreadyIntercepted = errors.New("media element audio already intercepted")

// StreamFormat 16-bit PCM 交错流的格式
type StreamFormat struct {
	SampleRate int
	Channels   int
}

// MediaElement 原生渲染默认音轨的媒体元素（video）
type MediaElement interface {
	ID() string
	// CaptureAudio 接管元素的原生音频输出，每个元素生命周期内只能成功一次
	CaptureAudio() (io.Reader, StreamFormat, error)
}

var (
	interceptMu sync.Mutex
	intercepted = make(map[string]struct{})
)

// DefaultTrackGain 把 video 元素原生音轨接到单个 GainStage 上
type DefaultTrackGain struct {
	elementID string
	rc        RenderContext
	stage     *GainStage
	voice     *streamVoice
	curve     Curve
	closeOnce sync.Once
}

// Intercept 每个媒体元素只能建立一次；重复调用返回 ErrAlreadyIntercepted。
// 建立时增益为 0，调用方随后用 Update 设置默认音轨的状态。
func Intercept(rc RenderContext, element MediaElement, curve Curve) (*DefaultTrackGain, error) {
	if rc == nil || element == nil {
		return nil, errors.New("intercept requires a render context and a media element")
	}
	if curve == nil {
		curve = LinearCurve
	}

	id := element.ID()
	interceptMu.Lock()
	if _, ok := intercepted[id]; ok {
		interceptMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyIntercepted, id)
	}
	intercepted[id] = struct{}{}
	interceptMu.Unlock()

	release := func() {
		interceptMu.Lock()
		delete(intercepted, id)
		interceptMu.Unlock()
	}

	stream, format, err := element.CaptureAudio()
	if err != nil {
		release()
		return nil, fmt.Errorf("capture element audio: %w", err)
	}
	if format.SampleRate > 0 && format.SampleRate != rc.SampleRate() {
		stream = NewResamplingReader(stream, format.SampleRate, rc.SampleRate(), format.Channels, nil)
	}

	stage := NewGainStage(0)
	voice := newStreamVoice(stream, format.Channels, stage)
	if err := rc.Connect(voice); err != nil {
		release()
		return nil, fmt.Errorf("connect element audio: %w", err)
	}

	logging.Infof("DefaultTrackGain: intercepted element %s (%d Hz, %d ch)", id, format.SampleRate, format.Channels)
	return &DefaultTrackGain{
		elementID: id,
		rc:        rc,
		stage:     stage,
		voice:     voice,
		curve:     curve,
	}, nil
}

// Update 重新计算增益：active ? curve(percent) : 0
func (d *DefaultTrackGain) Update(active bool, percent float64) float64 {
	gain := EffectiveGain(d.curve, active, percent)
	d.stage.Set(gain)
	return gain
}

func (d *DefaultTrackGain) Gain() float64 {
	return d.stage.Value()
}

// Close 断开拦截并释放元素登记，对应元素生命周期结束
func (d *DefaultTrackGain) Close() {
	d.closeOnce.Do(func() {
		d.rc.Disconnect(d.voice)
		interceptMu.Lock()
		delete(intercepted, d.elementID)
		interceptMu.Unlock()
	})
}
