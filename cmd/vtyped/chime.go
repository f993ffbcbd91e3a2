package main

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// soundFiles maps a chime kind to the freedesktop sound theme files tried
// in order, mirroring the collaborator contract's notification sounds.
var soundFiles = map[string][]string{
	"start": {
		"/usr/share/sounds/freedesktop/stereo/message.oga",
		"/usr/share/sounds/freedesktop/stereo/dialog-information.oga",
	},
	"stop": {
		"/usr/share/sounds/freedesktop/stereo/complete.oga",
		"/usr/share/sounds/freedesktop/stereo/bell.oga",
	},
	"wake": {
		"/usr/share/sounds/freedesktop/stereo/message-new-instant.oga",
	},
}

var chimePlayers = [][]string{
	{"pw-play"},
	{"paplay"},
	{"canberra-gtk-play", "-f"},
}

// subprocessChimer plays a short notification sound via whichever player
// binary is available, doing nothing if no sound file for the given kind
// exists on disk and only logging at debug level if no player succeeds.
type subprocessChimer struct {
	logger interface {
		Debug(msg string, kv ...any)
	}
}

func (c *subprocessChimer) Play(kind string) {
	files := soundFiles[kind]
	var file string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			file = f
			break
		}
	}
	if file == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for _, player := range chimePlayers {
			args := append(append([]string{}, player[1:]...), file)
			if err := exec.CommandContext(ctx, player[0], args...).Run(); err == nil {
				return
			}
		}
		if c.logger != nil {
			c.logger.Debug("chime: no player succeeded", "kind", kind)
		}
	}()
}
