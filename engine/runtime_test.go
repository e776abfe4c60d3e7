package engine

import (
	"sync"
	"testing"

	"github.com/kbukum/gearsclient/errors"
	"github.com/kbukum/gearsclient/gears"
	"github.com/kbukum/gearsclient/logger"
)

func TestRuntime_Defaults(t *testing.T) {
	rt := NewRuntime(RuntimeConfig{Log: logger.Nop()})
	if rt.HashTag() != DefaultHashTag {
		t.Errorf("expected %s, got %s", DefaultHashTag, rt.HashTag())
	}
	if _, err := rt.Execute("GET", "k"); !errors.Is(err, errors.ErrCodeNoRuntime) {
		t.Errorf("expected NO_RUNTIME, got %v", err)
	}
	if _, ok := rt.ConfigGet("missing"); ok {
		t.Error("expected missing key")
	}
}

func TestRuntime_ConfigAndExecute(t *testing.T) {
	var got []any
	rt := NewRuntime(RuntimeConfig{
		Log:     logger.Nop(),
		Config:  map[string]any{"batch": int64(10)},
		HashTag: "{abc}",
		Execute: func(args ...any) (any, error) {
			got = args
			return "OK", nil
		},
	})

	if v := gears.ConfigGet(rt, "batch", int64(1)); v != int64(10) {
		t.Errorf("expected 10, got %v", v)
	}
	if v := gears.ConfigGet(rt, "other", "def"); v != "def" {
		t.Errorf("expected default, got %v", v)
	}
	reply, err := gears.Execute(rt, "SET", "k", "v")
	if err != nil || reply != "OK" {
		t.Fatalf("unexpected reply %v, %v", reply, err)
	}
	if len(got) != 3 || got[0] != "SET" {
		t.Errorf("unexpected args %v", got)
	}
	if tag, _ := gears.HashTag(rt); tag != "{abc}" {
		t.Errorf("expected {abc}, got %s", tag)
	}
}

func TestAtomicContext_Misuse(t *testing.T) {
	rt := NewRuntime(RuntimeConfig{Log: logger.Nop()})

	a := rt.Atomic()
	if err := a.Exit(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT on exit without enter, got %v", err)
	}
	if err := a.Enter(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := a.Enter(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT on double enter, got %v", err)
	}
	if err := a.Exit(); err != nil {
		t.Fatalf("exit: %v", err)
	}
}

func TestAtomic_Serializes(t *testing.T) {
	rt := NewRuntime(RuntimeConfig{Log: logger.Nop()})

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = gears.Atomic(rt, func() error {
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				counter++
				inside--
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 20 {
		t.Errorf("expected 20 increments, got %d", counter)
	}
	if maxSeen != 1 {
		t.Errorf("expected exclusive access, saw %d concurrent blocks", maxSeen)
	}
}
