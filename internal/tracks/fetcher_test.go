package tracks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.wav")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, source := range []string{path, "file://" + path} {
		data, err := FileFetcher{}.Fetch(context.Background(), source)
		if err != nil {
			t.Fatalf("Fetch(%s) error: %v", source, err)
		}
		if string(data) != "abc" {
			t.Fatalf("unexpected data %q", data)
		}
	}

	if _, err := (FileFetcher{MaxBytes: 2}).Fetch(context.Background(), path); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFileFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileFetcher{}).Fetch(ctx, "/does/not/matter"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSchemeFetcherHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("pcm-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(0)
	data, err := f.Fetch(context.Background(), srv.URL+"/audio_1.wav")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(data) != "pcm-bytes" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}

	limited := NewFetcher(3)
	if _, err := limited.Fetch(context.Background(), srv.URL+"/audio_1.wav"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
