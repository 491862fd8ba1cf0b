package xerrors

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

// stackContains reports whether any frame in pcs contains the function name substring.
func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			break
		}
	}
	return false
}

func TestNew_ErrorMessage(t *testing.T) {
	err := New("content root missing")
	if err.Error() != "content root missing" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNew_StackContainsCaller(t *testing.T) {
	err := New("boom")

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) {
		t.Fatal("New error should carry StackPCs")
	}
	if !stackContains(hs.StackPCs(), "TestNew_StackContainsCaller") {
		t.Fatal("stack should contain calling function")
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf("descriptor for %q already registered", "events.json")
	want := `descriptor for "events.json" already registered`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}
}

func TestWrap_PrefixesMessage(t *testing.T) {
	err := Wrap(errSentinel, "read file")
	if err.Error() != "read file: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrap_UnwrapsToSentinel(t *testing.T) {
	err := Wrapf(errSentinel, "load %s", "cities.json")
	if !errors.Is(err, errSentinel) {
		t.Fatal("wrapped error should unwrap to sentinel")
	}
}

func TestWrap_HasCallerPC(t *testing.T) {
	err := Wrap(errSentinel, "ctx")

	var hp interface{ PC() uintptr }
	if !errors.As(err, &hp) {
		t.Fatal("Wrap error should carry a caller PC")
	}
	if hp.PC() == 0 {
		t.Fatal("PC should be non-zero")
	}
}

func TestWithStack_NilReturnsNil(t *testing.T) {
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should return nil")
	}
}

func TestWithStack_PreservesMessageAndChain(t *testing.T) {
	err := WithStack(errSentinel)
	if err.Error() != "sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("should unwrap to sentinel")
	}
}

func TestEnsureTrace_DoesNotDoubleWrap(t *testing.T) {
	base := New("already stacked")
	err := EnsureTrace(base)
	if err != base {
		t.Fatal("EnsureTrace should return err unchanged when a stack exists")
	}
}

func TestEnsureTrace_AddsStackWhenMissing(t *testing.T) {
	err := EnsureTrace(errSentinel)
	if err == errSentinel {
		t.Fatal("EnsureTrace should wrap a plain error")
	}

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) || len(hs.StackPCs()) == 0 {
		t.Fatal("EnsureTrace should attach a stack")
	}
}
