package inject

import (
	"context"
	"strings"
	"time"
)

// ydotoolKeyMap translates xdotool/X11 keysym names to the evdev key names
// ydotool expects (e.g. "Return" -> "Enter").
var ydotoolKeyMap = map[string]string{
	"Return": "Enter",
	"Escape": "Esc",
}

func toYdotoolKey(key string) string {
	if strings.Contains(key, "+") {
		parts := strings.Split(key, "+")
		for i, p := range parts {
			if mapped, ok := ydotoolKeyMap[p]; ok {
				parts[i] = mapped
			}
		}
		return strings.Join(parts, "+")
	}
	if mapped, ok := ydotoolKeyMap[key]; ok {
		return mapped
	}
	return key
}

// WtypeBackend types and sends keys natively via wtype, which understands
// XKB key names directly on Wayland compositors that support virtual
// keyboard input.
type WtypeBackend struct{}

func (WtypeBackend) Name() string { return "wtype" }

func (WtypeBackend) TryType(ctx context.Context, text string) error {
	if err := run(ctx, 10*time.Second, "wtype", "--", text); err != nil {
		return ErrTryNext
	}
	return nil
}

func (WtypeBackend) TryKey(ctx context.Context, key string) error {
	var args []string
	if strings.Contains(key, "+") {
		parts := strings.Split(key, "+")
		for _, mod := range parts[:len(parts)-1] {
			args = append(args, "-M", strings.ToLower(mod))
		}
		args = append(args, "-k", parts[len(parts)-1])
	} else {
		args = append(args, "-k", key)
	}
	if err := run(ctx, 5*time.Second, "wtype", args...); err != nil {
		return ErrTryNext
	}
	return nil
}

// WlCopyYdotoolBackend sets both the regular and primary Wayland clipboard
// selections with wl-copy, then pastes via ydotool key (evdev uinput
// injection). TryKey sends the key directly through ydotool, translating
// X11 keysym names to evdev names first.
type WlCopyYdotoolBackend struct {
	PasteKeys string // e.g. "shift+Insert"
}

func (WlCopyYdotoolBackend) Name() string { return "wl-copy+ydotool" }

func (b WlCopyYdotoolBackend) TryType(ctx context.Context, text string) error {
	if err := run(ctx, 5*time.Second, "wl-copy", "--", text); err != nil {
		return ErrTryNext
	}
	if err := run(ctx, 5*time.Second, "wl-copy", "--primary", "--", text); err != nil {
		return ErrTryNext
	}
	time.Sleep(300 * time.Millisecond)
	paste := b.PasteKeys
	if paste == "" {
		paste = "shift+Insert"
	}
	if err := run(ctx, 5*time.Second, "ydotool", "key", "--delay", "100", paste); err != nil {
		return ErrTryNext
	}
	return nil
}

func (WlCopyYdotoolBackend) TryKey(ctx context.Context, key string) error {
	if err := run(ctx, 5*time.Second, "ydotool", "key", "--delay", "50", toYdotoolKey(key)); err != nil {
		return ErrTryNext
	}
	return nil
}

// XWaylandFallbackBackend falls through to the X11 xdotool chain, covering
// XWayland-compatible windows when native Wayland input injection fails
// entirely.
type XWaylandFallbackBackend struct {
	Inner TextBackend
}

func NewXWaylandFallbackBackend() XWaylandFallbackBackend {
	return XWaylandFallbackBackend{Inner: XdotoolTypeBackend{}}
}

func (b XWaylandFallbackBackend) Name() string { return "xwayland-xdotool" }

func (b XWaylandFallbackBackend) TryType(ctx context.Context, text string) error {
	return b.Inner.TryType(ctx, text)
}

func (b XWaylandFallbackBackend) TryKey(ctx context.Context, key string) error {
	return b.Inner.TryKey(ctx, key)
}
