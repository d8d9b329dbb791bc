package audio

import (
	"sort"

	"github.com/liuscraft/trackmix/internal/logging"
)

// PauseReporter 只读的传输状态，Graph 用它避免在用户已暂停后起播
type PauseReporter interface {
	Paused() bool
}

// GraphHooks 可选的观测回调
type GraphHooks struct {
	OnNodeStarted func(track int, offset float64)
	OnNodeStopped func(track int)
}

// Graph 单个会话的音频图：渲染上下文、每轨 GainStage 和当前活跃的播放节点。
// 非并发安全，只由引擎事件循环调用。
type Graph struct {
	factory   ContextFactory
	transport PauseReporter
	hooks     GraphHooks

	rc      RenderContext
	buffers map[int]*Buffer
	gains   map[int]*GainStage
	nodes   map[int]*activeNode
	closed  bool
}

func NewGraph(factory ContextFactory, transport PauseReporter, hooks GraphHooks) *Graph {
	return &Graph{
		factory:   factory,
		transport: transport,
		hooks:     hooks,
		buffers:   make(map[int]*Buffer),
		gains:     make(map[int]*GainStage),
		nodes:     make(map[int]*activeNode),
	}
}

// EnsureContext 按需创建渲染上下文；创建失败时返回错误，调用方应视为未就绪
func (g *Graph) EnsureContext() (RenderContext, error) {
	if g.closed {
		return nil, ErrContextClosed
	}
	if g.rc != nil {
		return g.rc, nil
	}
	rc, err := g.factory()
	if err != nil {
		return nil, err
	}
	g.rc = rc
	return rc, nil
}

// Context 已创建的渲染上下文，未创建时为 nil
func (g *Graph) Context() RenderContext {
	return g.rc
}

// AttachTrack 登记解码结果，并为该轨创建新的 GainStage
func (g *Graph) AttachTrack(index int, buf *Buffer, gain float64) {
	if g.closed {
		return
	}
	g.buffers[index] = buf
	g.gains[index] = NewGainStage(gain)
}

func (g *Graph) Ready(index int) bool {
	_, ok := g.buffers[index]
	return ok
}

// ReadyTracks 已就绪的轨道索引（升序）
func (g *Graph) ReadyTracks() []int {
	out := make([]int, 0, len(g.buffers))
	for idx := range g.buffers {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// StartTrackAt 先停止该轨已有节点，再新建节点从 min(offset, 时长) 起播
func (g *Graph) StartTrackAt(index int, offset float64) bool {
	buf := g.buffers[index]
	gain := g.gains[index]
	if g.rc == nil || buf == nil || gain == nil {
		return false
	}

	g.StopTrack(index)

	node, err := newPlaybackNode(index, buf, gain).start(g.rc, offset)
	if err != nil {
		logging.Warnf("AudioGraph: failed to start track %d: %v", index, err)
		return false
	}
	g.nodes[index] = node
	if g.hooks.OnNodeStarted != nil {
		g.hooks.OnNodeStarted(index, node.offset)
	}
	return true
}

// StopTrack 幂等
func (g *Graph) StopTrack(index int) {
	node, ok := g.nodes[index]
	if !ok {
		return
	}
	node.stop()
	delete(g.nodes, index)
	if g.hooks.OnNodeStopped != nil {
		g.hooks.OnNodeStopped(index)
	}
}

// StartAllAt 上下文未创建或传输处于暂停时不做任何事，返回启动的节点数
func (g *Graph) StartAllAt(offset float64) int {
	if g.rc == nil {
		return 0
	}
	if g.transport != nil && g.transport.Paused() {
		return 0
	}
	started := 0
	for _, idx := range g.ReadyTracks() {
		if g.StartTrackAt(idx, offset) {
			started++
		}
	}
	return started
}

func (g *Graph) StopAll() {
	for idx := range g.nodes {
		g.StopTrack(idx)
	}
}

// SetGain 原地更新，对运行中和之后的节点都生效
func (g *Graph) SetGain(index int, value float64) bool {
	stage, ok := g.gains[index]
	if !ok {
		return false
	}
	stage.Set(value)
	return true
}

func (g *Graph) Gain(index int) (float64, bool) {
	stage, ok := g.gains[index]
	if !ok {
		return 0, false
	}
	return stage.Value(), true
}

// ActiveNodes 轨道索引 -> 起播偏移
func (g *Graph) ActiveNodes() map[int]float64 {
	out := make(map[int]float64, len(g.nodes))
	for idx, node := range g.nodes {
		out[idx] = node.offset
	}
	return out
}

// Close 停止全部节点、释放缓冲区和渲染上下文
func (g *Graph) Close() error {
	if g.closed {
		return nil
	}
	g.StopAll()
	g.closed = true
	clear(g.buffers)
	clear(g.gains)

	if g.rc == nil {
		return nil
	}
	rc := g.rc
	g.rc = nil
	return rc.Close()
}
