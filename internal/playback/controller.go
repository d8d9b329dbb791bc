package playback

import (
	"context"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/metrics"
	"github.com/liuscraft/trackmix/internal/tracks"
)

// Controller 播放同步控制器：根据 video 传输事件启动/停止辅助音轨的播放节点。
// 非并发安全，所有方法都在引擎事件循环中调用。
type Controller struct {
	transport Transport
	factory   audio.ContextFactory
	state     State
	session   *Session
	// gains 每轨最新的有效增益，新会话以它为加载快照
	gains map[int]float64
}

func NewController(transport Transport, factory audio.ContextFactory) *Controller {
	return &Controller{
		transport: transport,
		factory:   factory,
		state:     StateStopped,
		gains:     make(map[int]float64),
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Session() *Session {
	return c.session
}

// BeginSession 结束旧会话后为 aux 中可加载的音轨开启新会话，返回待加载请求
func (c *Controller) BeginSession(parent context.Context, aux []tracks.Track) (*Session, []tracks.Request) {
	c.EndSession()

	loadable := tracks.Loadable(aux)
	ctx, cancel := context.WithCancel(parent)
	graph := audio.NewGraph(c.factory, c.transport, audio.GraphHooks{
		OnNodeStarted: func(int, float64) { metrics.ActiveNodes.Inc() },
		OnNodeStopped: func(int) { metrics.ActiveNodes.Dec() },
	})

	s := &Session{
		ID:      logging.NewSessionID(),
		Sources: tracks.Sources(aux),
		Ready:   ReadyCounter{Loaded: 0, Total: len(loadable)},
		Graph:   graph,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.session = s
	logging.StartSession(s.ID)
	metrics.SessionsTotal.Inc()

	if _, err := graph.EnsureContext(); err != nil {
		logging.Debugf("SyncController: render context not ready yet: %v", err)
	}
	if c.transportRunning() {
		// video 已在播放：新会话的音轨就绪后立即跟上
		s.PendingPlay = true
		c.ensureRunning(s)
	}

	reqs := make([]tracks.Request, 0, len(loadable))
	for _, t := range loadable {
		gain, ok := c.gains[t.Index]
		if !ok {
			gain = 1
		}
		reqs = append(reqs, tracks.Request{Index: t.Index, Source: t.Source, Gain: gain})
	}
	logging.Infof("SyncController: session started with %d auxiliary tracks", len(reqs))
	return s, reqs
}

// EndSession 取消加载、停止全部节点并释放渲染上下文
func (c *Controller) EndSession() {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	s.cancel()
	if err := s.Graph.Close(); err != nil {
		logging.Warnf("SyncController: failed to close render context: %v", err)
	}
	logging.Infof("SyncController: session %s ended", s.ID)
}

// OnTrackLoaded 处理一条加载完成的音轨；过期会话的结果直接丢弃
func (c *Controller) OnTrackLoaded(sessionID string, r tracks.Result) {
	s := c.session
	if s == nil || s.ID != sessionID || s.ctx.Err() != nil {
		return
	}

	s.Graph.AttachTrack(r.Index, r.Buffer, r.Gain)
	if latest, ok := c.gains[r.Index]; ok && latest != r.Gain {
		// 加载期间增益已变化，补发最新值
		s.Graph.SetGain(r.Index, latest)
	}
	s.Ready.Loaded++
	logging.Debugf("SyncController: track %d ready (%d/%d)", r.Index, s.Ready.Loaded, s.Ready.Total)

	if !s.PendingPlay || !c.transportRunning() {
		return
	}
	if !c.ensureRunning(s) {
		return
	}

	now := c.transport.CurrentTime()
	if s.Graph.StartTrackAt(r.Index, now) {
		metrics.NodeStartsTotal.WithLabelValues("late").Inc()
	}
	if s.Ready.Complete() {
		// 全部就绪：补启动尚未播放的音轨，不打断已在播放的
		active := s.Graph.ActiveNodes()
		for _, idx := range s.Graph.ReadyTracks() {
			if _, playing := active[idx]; playing {
				continue
			}
			if s.Graph.StartTrackAt(idx, now) {
				metrics.NodeStartsTotal.WithLabelValues("deferred").Inc()
			}
		}
		s.PendingPlay = false
	}
}

// HandleEvent 处理一条传输事件
func (c *Controller) HandleEvent(ev Event) {
	metrics.TransportEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	c.state = nextState(c.state, ev.Type, c.transport.Paused())

	s := c.session
	if s == nil {
		return
	}

	switch ev.Type {
	case EventPlay:
		c.onPlay(s)
	case EventPause, EventEnded:
		c.onPause(s)
	case EventSeeked, EventPlaying:
		c.resync(s, ev.Type)
	case EventWaiting:
		s.Graph.StopAll()
	case EventSeeking:
	}
}

func (c *Controller) onPlay(s *Session) {
	rc, err := s.Graph.EnsureContext()
	if err != nil {
		logging.Warnf("SyncController: render context unavailable: %v", err)
		s.PendingPlay = true
		return
	}
	if err := rc.Resume(); err != nil {
		logging.Warnf("SyncController: failed to resume render context: %v", err)
	}

	if s.Ready.Complete() {
		s.PendingPlay = false
		n := s.Graph.StartAllAt(c.transport.CurrentTime())
		metrics.NodeStartsTotal.WithLabelValues("play").Add(float64(n))
		return
	}
	s.PendingPlay = true
	logging.Debugf("SyncController: play deferred, %d/%d tracks loaded", s.Ready.Loaded, s.Ready.Total)
}

func (c *Controller) onPause(s *Session) {
	if rc := s.Graph.Context(); rc != nil {
		if err := rc.Suspend(); err != nil {
			logging.Warnf("SyncController: failed to suspend render context: %v", err)
		}
	}
	s.Graph.StopAll()
}

// resync 把所有就绪音轨重新对齐到当前时间；暂停时 StartAllAt 自身是 no-op
func (c *Controller) resync(s *Session, trigger EventType) {
	if !c.transport.Paused() {
		c.ensureRunning(s)
	}
	n := s.Graph.StartAllAt(c.transport.CurrentTime())
	metrics.NodeStartsTotal.WithLabelValues(string(trigger)).Add(float64(n))
	if n > 0 && s.Ready.Complete() {
		s.PendingPlay = false
	}
}

// transportRunning video 正在推进时间：处于 Playing，或尚未观察到任何事件但元素未暂停。
// Stalled/Seeking 期间不启动节点，等 playing/seeked 再统一对齐。
func (c *Controller) transportRunning() bool {
	if c.transport.Paused() {
		return false
	}
	return c.state == StatePlaying || c.state == StateStopped
}

// ensureRunning 按需创建并恢复会话的渲染上下文
func (c *Controller) ensureRunning(s *Session) bool {
	rc, err := s.Graph.EnsureContext()
	if err != nil {
		logging.Warnf("SyncController: render context unavailable: %v", err)
		return false
	}
	if rc.State() != audio.ContextRunning {
		if err := rc.Resume(); err != nil {
			logging.Warnf("SyncController: failed to resume render context: %v", err)
		}
	}
	return true
}

// SeedGain 只记录增益，供下一次 BeginSession 作为加载快照
func (c *Controller) SeedGain(index int, value float64) {
	c.gains[index] = value
}

// SetGain 更新某条辅助音轨的有效增益，不重建节点
func (c *Controller) SetGain(index int, value float64) {
	c.gains[index] = value
	if c.session != nil {
		c.session.Graph.SetGain(index, value)
	}
	metrics.GainUpdatesTotal.Inc()
}
