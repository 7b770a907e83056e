package xerrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}
}

func TestWrapMessage(t *testing.T) {
	base := errors.New("disk full")
	err := Wrap(base, "save document")
	want := "save document: disk full"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapped error should match base via errors.Is")
	}
}

func TestWrapCarriesPC(t *testing.T) {
	err := Wrap(errors.New("boom"), "context")
	type hasPC interface{ PC() uintptr }
	hp, ok := err.(hasPC)
	if !ok {
		t.Fatal("Wrap result should expose PC()")
	}
	if hp.PC() == 0 {
		t.Fatal("PC should be non-zero")
	}
}

func TestNewCarriesStack(t *testing.T) {
	err := New("standalone failure")
	type hasStack interface{ StackPCs() []uintptr }
	hs, ok := err.(hasStack)
	if !ok {
		t.Fatal("New result should expose StackPCs()")
	}
	if len(hs.StackPCs()) == 0 {
		t.Fatal("stack should be captured")
	}
}

func TestNewfFormats(t *testing.T) {
	err := Newf("bad value %d for %s", 7, "port")
	if !strings.Contains(err.Error(), "bad value 7 for port") {
		t.Fatalf("Newf message = %q", err.Error())
	}
}

func TestEnsureTraceIdempotent(t *testing.T) {
	type hasStack interface{ StackPCs() []uintptr }

	base := New("already stacked")
	again := EnsureTrace(base)
	if again != base {
		t.Fatal("EnsureTrace should not re-wrap an error that carries a stack")
	}

	plain := fmt.Errorf("plain")
	traced := EnsureTrace(plain)
	if traced == plain {
		t.Fatal("EnsureTrace should wrap a plain error")
	}
	var hs hasStack
	if !errors.As(traced, &hs) || len(hs.StackPCs()) == 0 {
		t.Fatal("EnsureTrace should attach a stack")
	}

	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) should return nil")
	}
}

func TestUnwrapChain(t *testing.T) {
	sentinel := errors.New("not found")
	err := Wrap(Wrap(sentinel, "resolve path"), "fetch document")
	if !errors.Is(err, sentinel) {
		t.Fatal("sentinel should be reachable through two wraps")
	}
}
