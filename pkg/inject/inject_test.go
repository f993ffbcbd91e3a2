package inject

import (
	"context"
	"errors"
	"testing"
)

type fakeBackend struct {
	name       string
	typeErr    error
	keyErr     error
	typedCalls []string
	keyCalls   []string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) TryType(_ context.Context, text string) error {
	f.typedCalls = append(f.typedCalls, text)
	return f.typeErr
}

func (f *fakeBackend) TryKey(_ context.Context, key string) error {
	f.keyCalls = append(f.keyCalls, key)
	return f.keyErr
}

func TestTextInjectorFallsThroughOnTryNext(t *testing.T) {
	first := &fakeBackend{name: "first", typeErr: ErrTryNext}
	second := &fakeBackend{name: "second"}
	inj := NewTextInjector("x11", []TextBackend{first, second}, nil)

	if err := inj.Inject(context.Background(), "hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(first.typedCalls) != 1 {
		t.Errorf("expected first backend to be tried once")
	}
	if len(second.typedCalls) != 1 {
		t.Errorf("expected second backend to be tried after first declined")
	}
}

func TestTextInjectorAllBackendsFail(t *testing.T) {
	first := &fakeBackend{name: "first", typeErr: errors.New("boom")}
	inj := NewTextInjector("x11", []TextBackend{first}, nil)

	if err := inj.Inject(context.Background(), "hello"); err == nil {
		t.Fatal("expected error when every backend fails")
	}
}

func TestTextInjectorEmptyTextIsNoop(t *testing.T) {
	first := &fakeBackend{name: "first"}
	inj := NewTextInjector("x11", []TextBackend{first}, nil)

	if err := inj.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject(\"\") error = %v", err)
	}
	if len(first.typedCalls) != 0 {
		t.Error("expected no backend to be invoked for empty text")
	}
}

func TestSendKeyFallsThrough(t *testing.T) {
	first := &fakeBackend{name: "first", keyErr: ErrTryNext}
	second := &fakeBackend{name: "second"}
	inj := NewTextInjector("wayland", []TextBackend{first, second}, nil)

	if err := inj.SendKey(context.Background(), "Return"); err != nil {
		t.Fatalf("SendKey() error = %v", err)
	}
	if len(second.keyCalls) != 1 || second.keyCalls[0] != "Return" {
		t.Errorf("expected second backend to receive the key, got %v", second.keyCalls)
	}
}

func TestIsASCII(t *testing.T) {
	if !isASCII("hello world") {
		t.Error("expected ASCII text to report true")
	}
	if isASCII("привет") {
		t.Error("expected non-ASCII text to report false")
	}
}

func TestToYdotoolKey(t *testing.T) {
	cases := map[string]string{
		"Return":      "Enter",
		"Escape":      "Esc",
		"ctrl+Return": "ctrl+Enter",
		"Tab":         "Tab",
	}
	for in, want := range cases {
		if got := toYdotoolKey(in); got != want {
			t.Errorf("toYdotoolKey(%q) = %q, want %q", in, got, want)
		}
	}
}
