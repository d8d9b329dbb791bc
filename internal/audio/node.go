package audio

import (
	"fmt"
	"math"
	"sync"
)

// playbackNode 尚未启动的一次性播放单元。
// start 以值接收者消耗它并返回只能 stop 的 activeNode，节点本身从不被保存，
// 因此"停止后重新启动同一节点"在类型上无从表达。
type playbackNode struct {
	track int
	buf   *Buffer
	gain  *GainStage
}

func newPlaybackNode(track int, buf *Buffer, gain *GainStage) playbackNode {
	return playbackNode{track: track, buf: buf, gain: gain}
}

func (n playbackNode) start(rc RenderContext, offset float64) (*activeNode, error) {
	offset = ClampOffset(offset, n.buf.Duration())
	voice := newBufferVoice(n.buf, n.gain, offset, rc.SampleRate())
	if err := rc.Connect(voice); err != nil {
		return nil, fmt.Errorf("connect track %d: %w", n.track, err)
	}
	return &activeNode{track: n.track, offset: offset, voice: voice, rc: rc}, nil
}

// activeNode 正在渲染的播放单元
type activeNode struct {
	track  int
	offset float64
	voice  *bufferVoice
	rc     RenderContext
	once   sync.Once
}

func (a *activeNode) stop() {
	a.once.Do(func() {
		a.rc.Disconnect(a.voice)
	})
}

// ClampOffset 把起播位置限制在 [0, duration]，越过缓冲区末尾起播是非法的
func ClampOffset(offset, duration float64) float64 {
	if math.IsNaN(offset) || offset < 0 {
		return 0
	}
	return math.Min(offset, duration)
}
