package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/tracks"
)

var ErrEngineStopped = errors.New("playback engine stopped")

// Loader 后台加载音轨，见 tracks.Loader
type Loader interface {
	Load(ctx context.Context, reqs []tracks.Request, deliver func(tracks.Result)) (wait func())
}

type Options struct {
	Transport Transport
	Loader    Loader
	// Factory 每个会话的渲染上下文；默认音轨拦截另外创建一个常驻上下文
	Factory       audio.ContextFactory
	Curve         audio.Curve
	GainThrottle  time.Duration
	QueueCapacity int
}

// Status 引擎状态快照
type Status struct {
	SessionID   string
	State       State
	Ready       ReadyCounter
	PendingPlay bool
	ActiveNodes map[int]float64
	DefaultGain float64
	Intercepted bool
}

// Engine 单 goroutine 事件循环：传输事件、加载结果、音轨/增益更新都在循环内串行处理
type Engine struct {
	opts  Options
	ctrl  *Controller
	curve audio.Curve

	ops      chan func()
	done     chan struct{}
	stopped  chan struct{}
	runOnce  sync.Once
	doneOnce sync.Once

	// 以下字段只在事件循环中访问
	runCtx      context.Context
	gains       *gainThrottle
	defaultIdx  int
	hasDefault  bool
	defaultLast GainUpdate
	intercept   *audio.DefaultTrackGain
	interceptRC audio.RenderContext
	loads       sync.WaitGroup
}

func New(opts Options) *Engine {
	if opts.Curve == nil {
		opts.Curve = audio.LinearCurve
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 64
	}
	e := &Engine{
		opts:    opts,
		ctrl:    NewController(opts.Transport, opts.Factory),
		curve:   opts.Curve,
		ops:     make(chan func(), opts.QueueCapacity),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	e.gains = newGainThrottle(opts.GainThrottle, e.applyGain, e.post)
	return e
}

// Run 运行事件循环直到 ctx 结束或 Stop；退出时结束会话并释放所有渲染上下文
func (e *Engine) Run(ctx context.Context) error {
	started := false
	e.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("engine already running")
	}
	defer close(e.stopped)

	e.runCtx = ctx
	unsubscribe := e.opts.Transport.Subscribe(func(ev Event) {
		e.post(func() { e.ctrl.HandleEvent(ev) })
	})
	logging.Infof("PlaybackEngine: started")

	defer func() {
		unsubscribe()
		e.doneOnce.Do(func() { close(e.done) })
		e.teardown()
		logging.Infof("PlaybackEngine: stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case op := <-e.ops:
			op()
		}
	}
}

// Stop 通知事件循环退出并等待清理完成
func (e *Engine) Stop() {
	e.runOnce.Do(func() { close(e.stopped) })
	e.doneOnce.Do(func() { close(e.done) })
	<-e.stopped
}

func (e *Engine) post(op func()) bool {
	select {
	case <-e.done:
		return false
	case <-e.stopped:
		return false
	case e.ops <- op:
		return true
	}
}

// call 在事件循环中执行 op 并等待完成
func (e *Engine) call(op func()) error {
	finished := make(chan struct{})
	if !e.post(func() {
		defer close(finished)
		op()
	}) {
		return ErrEngineStopped
	}
	select {
	case <-finished:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	}
}

// SetTracks 接收编辑器中的音轨列表。源地址集合变化时开启新会话，
// 否则只把增益/静音变化送入增益通道。
func (e *Engine) SetTracks(list []tracks.Track) error {
	return e.call(func() { e.setTracks(list) })
}

// SetGain 更新单条音轨的界面状态
func (e *Engine) SetGain(u GainUpdate) error {
	return e.call(func() { e.gains.Push(u) })
}

// AttachElement 拦截 video 元素的原生音轨，每个元素只能成功一次
func (e *Engine) AttachElement(el audio.MediaElement) error {
	var err error
	if cerr := e.call(func() { err = e.attachElement(el) }); cerr != nil {
		return cerr
	}
	return err
}

func (e *Engine) Status() (Status, error) {
	var st Status
	err := e.call(func() {
		st.State = e.ctrl.State()
		if s := e.ctrl.Session(); s != nil {
			st.SessionID = s.ID
			st.Ready = s.Ready
			st.PendingPlay = s.PendingPlay
			st.ActiveNodes = s.Graph.ActiveNodes()
		}
		if e.intercept != nil {
			st.Intercepted = true
			st.DefaultGain = e.intercept.Gain()
		}
	})
	return st, err
}

func (e *Engine) setTracks(list []tracks.Track) {
	def, aux := tracks.Split(list)
	if def != nil {
		e.defaultIdx, e.hasDefault = def.Index, true
		e.gains.Push(GainUpdate{Index: def.Index, Active: def.Active, Percent: def.GainPercent})
	}

	s := e.ctrl.Session()
	if s == nil || !s.SameSources(tracks.Sources(aux)) {
		// 新会话的加载快照直接使用最新增益
		for _, t := range aux {
			e.ctrl.SeedGain(t.Index, audio.EffectiveGain(e.curve, t.Active, t.GainPercent))
		}
		e.startSession(aux)
	}
	for _, t := range aux {
		e.gains.Push(GainUpdate{Index: t.Index, Active: t.Active, Percent: t.GainPercent})
	}
}

func (e *Engine) startSession(aux []tracks.Track) {
	s, reqs := e.ctrl.BeginSession(e.runCtx, aux)
	if len(reqs) == 0 || e.opts.Loader == nil {
		return
	}

	sessionID := s.ID
	sessionCtx := s.Context()
	wait := e.opts.Loader.Load(sessionCtx, reqs, func(r tracks.Result) {
		e.post(func() { e.ctrl.OnTrackLoaded(sessionID, r) })
	})
	e.loads.Add(1)
	go func() {
		defer e.loads.Done()
		wait()
	}()
}

func (e *Engine) applyGain(u GainUpdate) {
	if e.hasDefault && u.Index == e.defaultIdx {
		e.defaultLast = u
		if e.intercept != nil {
			e.intercept.Update(u.Active, u.Percent)
		}
		return
	}
	e.ctrl.SetGain(u.Index, audio.EffectiveGain(e.curve, u.Active, u.Percent))
}

func (e *Engine) attachElement(el audio.MediaElement) error {
	if e.intercept != nil {
		return audio.ErrAlreadyIntercepted
	}
	rc, err := e.opts.Factory()
	if err != nil {
		return err
	}
	d, err := audio.Intercept(rc, el, e.curve)
	if err != nil {
		_ = rc.Close()
		return err
	}
	if err := rc.Resume(); err != nil {
		logging.Warnf("PlaybackEngine: failed to resume element context: %v", err)
	}
	e.intercept = d
	e.interceptRC = rc
	e.gains.Flush()
	if e.hasDefault {
		d.Update(e.defaultLast.Active, e.defaultLast.Percent)
	} else {
		// 还不知道默认音轨状态时保持原音量
		d.Update(true, 100)
	}
	return nil
}

// DetachElement 元素销毁时释放拦截
func (e *Engine) DetachElement() error {
	return e.call(e.detachElement)
}

func (e *Engine) detachElement() {
	if e.intercept == nil {
		return
	}
	e.intercept.Close()
	if err := e.interceptRC.Close(); err != nil {
		logging.Warnf("PlaybackEngine: failed to close element context: %v", err)
	}
	e.intercept = nil
	e.interceptRC = nil
}

func (e *Engine) teardown() {
	e.ctrl.EndSession()
	e.detachElement()
	e.loads.Wait()
}
