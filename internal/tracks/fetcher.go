package tracks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

var ErrTooLarge = errors.New("audio track exceeds size limit")

// Fetcher 读取一条音轨的原始字节，必须响应 ctx 取消
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type FileFetcher struct {
	MaxBytes int64
}

func (f FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	path := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		path = u.Path
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	data, err := readLimited(ctx, file, f.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func (f HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", source, resp.Status)
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return nil, fmt.Errorf("fetch %s: %w", source, ErrTooLarge)
	}
	return readLimited(ctx, resp.Body, f.MaxBytes)
}

// SchemeFetcher 按 URI scheme 分派：http(s) 走网络，其余按本地文件处理
type SchemeFetcher struct {
	File FileFetcher
	HTTP HTTPFetcher
}

func NewFetcher(maxBytes int64) *SchemeFetcher {
	return &SchemeFetcher{
		File: FileFetcher{MaxBytes: maxBytes},
		HTTP: HTTPFetcher{MaxBytes: maxBytes},
	}
}

func (f *SchemeFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return f.HTTP.Fetch(ctx, source)
	}
	return f.File.Fetch(ctx, source)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readLimited(ctx context.Context, r io.Reader, maxBytes int64) ([]byte, error) {
	reader := io.Reader(ctxReader{ctx: ctx, r: r})
	if maxBytes > 0 {
		reader = io.LimitReader(reader, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
