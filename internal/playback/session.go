package playback

import (
	"context"
	"slices"

	"github.com/liuscraft/trackmix/internal/audio"
)

// ReadyCounter 会话内已加载/应加载的辅助音轨数，只由加载完成回调修改
type ReadyCounter struct {
	Loaded int
	Total  int
}

// Complete Total 为 0 时也视为完成
func (r ReadyCounter) Complete() bool {
	return r.Loaded >= r.Total
}

// Session 一组一致的音轨源地址的生命周期
type Session struct {
	ID          string
	Sources     []string
	Ready       ReadyCounter
	PendingPlay bool
	Graph       *audio.Graph

	ctx    context.Context
	cancel context.CancelFunc
}

// Context 会话的加载上下文，会话结束时被取消
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) SameSources(sources []string) bool {
	return slices.Equal(s.Sources, sources)
}
