package inject

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// FocusManager saves the active window id before a dictation session and
// restores focus to it afterward, so the user doesn't have to re-click the
// target window after dictating. Wayland has no portable equivalent, so
// Save/Restore are no-ops there rather than errors.
type FocusManager struct {
	displayServer string
}

func NewFocusManager(displayServer string) *FocusManager {
	return &FocusManager{displayServer: displayServer}
}

// Save returns the id of the currently active window on X11, or "" on
// Wayland.
func (f *FocusManager) Save(ctx context.Context) (string, error) {
	if f.displayServer != "x11" {
		return "", nil
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(cctx, "xdotool", "getactivewindow").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Restore reactivates windowID and waits 150ms for the window manager to
// settle focus before the caller resumes injecting text. A no-op for an
// empty windowID or on Wayland.
func (f *FocusManager) Restore(ctx context.Context, windowID string) error {
	if f.displayServer != "x11" || windowID == "" {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(cctx, "xdotool", "windowactivate", "--sync", windowID).Run(); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)
	return nil
}
