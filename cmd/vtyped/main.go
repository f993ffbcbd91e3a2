// Command vtyped is a desktop voice-dictation daemon: it listens for a
// toggle signal, streams microphone audio through VAD-gated segmentation
// and a local whisper.cpp-compatible transcriber, and injects the result
// into the window that had focus when the session started (on X11, focus
// is restored to it before each injection).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vtype-dev/vtyped/internal/config"
	"github.com/vtype-dev/vtyped/pkg/audio"
	"github.com/vtype-dev/vtyped/pkg/dictation"
	"github.com/vtype-dev/vtyped/pkg/inject"
	"github.com/vtype-dev/vtyped/pkg/statuspub"
)

func main() {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to config.yaml")
		pidPath    = flag.String("pid", defaultPIDPath(), "path to pid file")
		statusAddr = flag.String("status-addr", "", "address to serve the status websocket on (disabled if empty)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	_ = godotenv.Load()
	if v := os.Getenv("VTYPED_DEBUG"); v == "1" || v == "true" {
		*debug = true
	}

	logger := newStderrLogger(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config, using defaults", "err", err)
	}

	if err := writePID(*pidPath); err != nil {
		logger.Warn("failed to write pid file", "err", err)
	}
	defer removePID(*pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher *statuspub.Publisher
	if *statusAddr != "" {
		publisher = statuspub.NewPublisher(logger)
		mux := http.NewServeMux()
		mux.Handle("/status", publisher.Handler())
		go func() {
			if err := http.ListenAndServe(*statusAddr, mux); err != nil {
				logger.Error("status server exited", "err", err)
			}
		}()
	}

	onEvent := func(ev dictation.Event) {
		logger.Debug("event", "type", ev.Type, "state", ev.State.String(), "text", ev.Text)
		if publisher != nil {
			publisher.Publish(ctx, statuspub.Event{
				Type:  string(ev.Type),
				State: ev.State.String(),
				Text:  ev.Text,
				Err:   ev.Err,
			})
		}
	}

	focus := inject.NewFocusManager(cfg.DisplayServer)
	var chain []inject.TextBackend
	if cfg.DisplayServer == "wayland" {
		chain = inject.DefaultWaylandChain(cfg.PasteKeys)
	} else {
		chain = inject.DefaultX11Chain()
	}
	injector := inject.NewTextInjector(cfg.DisplayServer, chain, logger)
	chime := &subprocessChimer{logger: logger}

	capture := audio.NewCapture(audio.Device(cfg.AudioDevice), logger)
	recorder := audio.NewRecorder(audio.Device(cfg.AudioDevice), logger)

	coordinator := dictation.NewCoordinator(cfg, injector, focus, chime, capture, recorder, logger, onEvent)

	go coordinator.Run(ctx)

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	logger.Info("vtyped started", "input_mode", string(cfg.InputMode), "output_mode", string(cfg.OutputMode))

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			coordinator.Toggle()
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("shutting down")
			coordinator.Shutdown()
			cancel()
			return
		}
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vtyped", "config.yaml")
	}
	return "config.yaml"
}

func defaultPIDPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("vtyped-%d.pid", os.Getuid()))
}
