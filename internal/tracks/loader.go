package tracks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Request 一条待加载的辅助音轨；Gain 是加载开始时的增益快照
type Request struct {
	Index  int
	Source string
	Gain   float64
}

// Result 加载成功的音轨
type Result struct {
	Index  int
	Source string
	Buffer *audio.Buffer
	Gain   float64
}

type LoaderConfig struct {
	Device      audio.DeviceConfig
	Concurrency int
	Timeout     time.Duration
}

// Loader 并发获取并解码音轨。单条失败只记录日志，不影响其他音轨；
// 取消视为静默，不记录错误也不投递结果。
type Loader struct {
	fetcher   Fetcher
	decoder   audio.Decoder
	resampler audio.Resampler
	config    LoaderConfig
}

func NewLoader(fetcher Fetcher, decoder audio.Decoder, config LoaderConfig) *Loader {
	if decoder == nil {
		decoder = audio.WAVDecoder{}
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &Loader{
		fetcher:   fetcher,
		decoder:   decoder,
		resampler: audio.NewLinearResampler(),
		config:    config,
	}
}

// Load 在后台加载 reqs，每条成功结果调用一次 deliver（可能来自不同 goroutine）。
// 返回的 wait 阻塞到本批次全部结束。
func (l *Loader) Load(ctx context.Context, reqs []Request, deliver func(Result)) (wait func()) {
	g := &errgroup.Group{}
	g.SetLimit(l.config.Concurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, req := range reqs {
			req := req
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				l.loadOne(ctx, req, deliver)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return func() { <-done }
}

func (l *Loader) loadOne(ctx context.Context, req Request, deliver func(Result)) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()

	buf, err := l.fetchAndDecode(ctx, req.Source)
	if err != nil {
		if isCancellation(ctx, err) {
			logging.Debugf("TrackLoader: track %d load cancelled", req.Index)
			return
		}
		metrics.TrackLoadsTotal.WithLabelValues("failed").Inc()
		logging.Errorf("TrackLoader: failed loading track %d from %s: %v", req.Index, req.Source, err)
		return
	}
	// 解码完成后会话可能已被替换
	if ctx.Err() != nil {
		return
	}

	metrics.TrackLoadsTotal.WithLabelValues("loaded").Inc()
	metrics.TrackLoadDuration.Observe(time.Since(started).Seconds())
	logging.Infof("TrackLoader: loaded track %d (%.2fs) in %v", req.Index, buf.Duration(), time.Since(started))

	deliver(Result{
		Index:  req.Index,
		Source: req.Source,
		Buffer: buf,
		Gain:   req.Gain,
	})
}

func (l *Loader) fetchAndDecode(ctx context.Context, source string) (*audio.Buffer, error) {
	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	data, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := audio.DecodeBuffer(l.decoder, data, l.config.Device, l.resampler)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return buf, nil
}

// isCancellation 只有会话本身被取消才算取消；单条超时属于加载失败
func isCancellation(session context.Context, err error) bool {
	return session.Err() != nil || errors.Is(err, context.Canceled)
}
