package playback

import (
	"time"

	"golang.org/x/time/rate"
)

// GainUpdate 一条音轨的界面状态
type GainUpdate struct {
	Index   int
	Active  bool
	Percent float64
}

// gainThrottle 合并增益更新（同一轨只保留最新值），并限制应用频率：
// 首个更新立即生效，节流窗口内的更新在窗口结束时一次性应用。
// 只在引擎事件循环中使用；定时器通过 post 回到事件循环。
type gainThrottle struct {
	limiter *rate.Limiter
	pending map[int]GainUpdate
	armed   bool
	apply   func(GainUpdate)
	post    func(func()) bool
}

func newGainThrottle(interval time.Duration, apply func(GainUpdate), post func(func()) bool) *gainThrottle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &gainThrottle{
		limiter: rate.NewLimiter(limit, 1),
		pending: make(map[int]GainUpdate),
		apply:   apply,
		post:    post,
	}
}

func (t *gainThrottle) Push(u GainUpdate) {
	t.pending[u.Index] = u
	if t.armed {
		return
	}

	r := t.limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		t.Flush()
		return
	}
	t.armed = true
	time.AfterFunc(delay, func() {
		t.post(t.Flush)
	})
}

// Flush 立即应用全部待处理的更新
func (t *gainThrottle) Flush() {
	t.armed = false
	for idx, u := range t.pending {
		t.apply(u)
		delete(t.pending, idx)
	}
}

func (t *gainThrottle) Pending() int {
	return len(t.pending)
}
