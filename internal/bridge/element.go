package bridge

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/liuscraft/trackmix/internal/audio"
)

var errAlreadyCaptured = errors.New("element audio already captured")

// RemoteElement webview 中的 video 元素。其原生音频以二进制帧送达，
// 经 pcmPipe 交给拦截器读取。
type RemoteElement struct {
	id       string
	format   audio.StreamFormat
	pipe     *pcmPipe
	captured atomic.Bool
}

func NewRemoteElement(id string, format audio.StreamFormat, maxBytes int) *RemoteElement {
	frame := 2 * format.Channels
	if frame <= 0 {
		frame = 2
	}
	return &RemoteElement{
		id:     id,
		format: format,
		pipe:   newPCMPipe(maxBytes, frame),
	}
}

func (e *RemoteElement) ID() string { return e.id }

func (e *RemoteElement) Format() audio.StreamFormat { return e.format }

func (e *RemoteElement) CaptureAudio() (io.Reader, audio.StreamFormat, error) {
	if !e.captured.CompareAndSwap(false, true) {
		return nil, e.format, errAlreadyCaptured
	}
	return e.pipe, e.format, nil
}

// Write 追加一段 PCM16LE 交错数据
func (e *RemoteElement) Write(p []byte) (int, error) {
	return e.pipe.Write(p)
}

func (e *RemoteElement) Close() error {
	return e.pipe.Close()
}

// Buffered 尚未被渲染读取的字节数
func (e *RemoteElement) Buffered() int {
	return e.pipe.Len()
}

// pcmPipe 不阻塞的有界管道：Read 在无数据时返回 (0, nil)，供音频回调使用；
// 写满时按整帧丢弃最旧的数据，保证延迟有上限。
type pcmPipe struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
	maxLen int
	frame  int
}

func newPCMPipe(maxLen, frame int) *pcmPipe {
	if maxLen <= 0 {
		maxLen = 1 << 20
	}
	return &pcmPipe{
		buf:    make([]byte, 0, 4096),
		maxLen: maxLen,
		frame:  frame,
	}
}

func (p *pcmPipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, data...)
	if over := len(p.buf) - p.maxLen; over > 0 {
		if rem := over % p.frame; rem != 0 {
			over += p.frame - rem
		}
		if over > len(p.buf) {
			over = len(p.buf)
		}
		p.buf = append(p.buf[:0], p.buf[over:]...)
	}
	return len(data), nil
}

func (p *pcmPipe) Read(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buf) == 0 {
		if p.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(out, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *pcmPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *pcmPipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}
