package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartSessionAddsLogFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(nil) })
	sessionID.Store("")
	generation = 0

	StartSession("session-123")
	Infof("hello")

	logs := recorded.All()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	fields := logs[0].ContextMap()
	if fields["session_id"] != "session-123" {
		t.Fatalf("expected session_id to be session-123, got %v", fields["session_id"])
	}
	if fields["generation"] != uint64(1) {
		t.Fatalf("expected generation to be 1, got %v (%T)", fields["generation"], fields["generation"])
	}
}

func TestStartSessionIgnoresBlankID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(nil) })
	sessionID.Store("kept")
	generation = 0

	StartSession("   ")
	Debugf("x")

	fields := recorded.All()[0].ContextMap()
	if fields["session_id"] != "kept" {
		t.Fatalf("expected blank id to be ignored, got %v", fields["session_id"])
	}
}

func TestNewSessionIDIsUnique(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestInitRejectsInvalidFormat(t *testing.T) {
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Fatal("expected invalid format error")
	}
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestReplaceConcurrentWithLogging(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	t.Cleanup(func() { Replace(nil) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Replace(zap.New(core))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Infof("tick %d", j)
			}
		}()
	}
	wg.Wait()

	Replace(zap.New(core))
	before := recorded.Len()
	Infof("after")
	if recorded.Len() != before+1 {
		t.Fatalf("expected the final logger to receive the entry")
	}
}
