package dictation

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeInjector struct {
	mu       sync.Mutex
	injected []string
	keys     []string
}

func (f *fakeInjector) Inject(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected = append(f.injected, text)
	return nil
}

func (f *fakeInjector) SendKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInjector) snapshot() (injected, keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.injected...), append([]string(nil), f.keys...)
}

type fakeChimer struct {
	mu     sync.Mutex
	played []string
}

func (f *fakeChimer) Play(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, kind)
}

func (f *fakeChimer) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

// fakeRecorder stands in for a batch-mode audio.Recorder: Start/Stop just
// flip a running flag, never touching the filesystem, so with no path set
// stopRecordingBatch gets a "" WAV path and goes straight to StateIdle.
type fakeRecorder struct {
	mu      sync.Mutex
	running bool
	path    string
}

func (f *fakeRecorder) Start() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return f.path, nil
}

func (f *fakeRecorder) Stop() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return f.path, nil
}

func (f *fakeRecorder) Cleanup() {}

// fakeCapture stands in for audio.Capture: Start records that it was asked
// to stream but never actually feeds any PCM, so tests drive segments by
// pushing directly into c.results instead.
type fakeCapture struct {
	mu      sync.Mutex
	starts  int
	stops   int
	running bool
}

func (f *fakeCapture) Start(_ context.Context, _ func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.running = true
	return nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VoiceCommands = false
	return cfg
}

// waitFor polls cond until it returns true or the timeout elapses.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

// fakeRecorder with no path configured mimics a recorder that captured
// nothing (device unavailable, zero-length clip): stopRecordingBatch must
// fall straight back to IDLE rather than spawning a transcription.
func TestCoordinatorHotkeyBatchTogglesRecordingThenIdleWhenEmpty(t *testing.T) {
	inj := &fakeInjector{}
	rec := &fakeRecorder{}
	cfg := testConfig()
	cfg.InputMode = InputModeHotkey
	cfg.OutputMode = OutputModeBatch
	c := NewCoordinator(cfg, inj, nil, nil, nil, rec, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateRecording }, "expected StateRecording after toggle")

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle when nothing was recorded")
}

// TestCoordinatorProcessingDeliversTranscriptOnWorkerResult drives the
// coordinator straight into StateProcessing before Run starts (no goroutine
// owns the state yet, so this single assignment is safe), then lets Run's
// own goroutine be the only thing that ever reads c.results or mutates
// state afterward — matching the single-writer discipline without
// depending on a real whisper-cli binary or recorder subprocess.
func TestCoordinatorProcessingDeliversTranscriptOnWorkerResult(t *testing.T) {
	inj := &fakeInjector{}
	c := NewCoordinator(testConfig(), inj, nil, nil, nil, nil, nil, nil)
	c.state = StateProcessing

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.results <- workerResult{Text: "привет мир"}

	waitFor(t, func() bool {
		injected, _ := inj.snapshot()
		return len(injected) == 1 && injected[0] == "привет мир"
	}, "expected transcript to be injected")
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle after delivery")
}

func TestCoordinatorHotkeyStreamStartsDictatingDirectly(t *testing.T) {
	inj := &fakeInjector{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeHotkey
	cfg.OutputMode = OutputModeStream
	c := NewCoordinator(cfg, inj, nil, nil, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected StateDictating directly on toggle in hotkey+stream mode")

	c.results <- workerResult{Text: "привет"}
	waitFor(t, func() bool {
		injected, _ := inj.snapshot()
		return len(injected) == 1 && injected[0] == "привет"
	}, "expected streamed segment to inject immediately")

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle after second toggle")
}

func TestCoordinatorStreamBatchOutputAccumulatesUntilFlush(t *testing.T) {
	inj := &fakeInjector{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeHotkey
	// Start the session in stream mode (so it takes the capture-backed
	// DICTATING path rather than hotkey+batch's Recorder branch), then flip
	// to batch output before any segment arrives to exercise DICTATING's
	// accumulate-until-flush behavior.
	cfg.OutputMode = OutputModeStream
	c := NewCoordinator(cfg, inj, nil, nil, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected StateDictating")
	c.cfg.OutputMode = OutputModeBatch

	c.results <- workerResult{Text: "первая часть"}
	c.results <- workerResult{Text: "вторая часть"}
	waitFor(t, func() bool { return c.Session().TextCount() == 2 }, "expected both segments accumulated, none injected yet")

	injected, _ := inj.snapshot()
	if len(injected) != 0 {
		t.Errorf("injected = %v before flush, want none", injected)
	}

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle after stop")
	waitFor(t, func() bool {
		injected, _ := inj.snapshot()
		return len(injected) == 1 && injected[0] == "первая часть вторая часть"
	}, "expected accumulated text joined and injected on stop")
}

func TestCoordinatorEndSignalGatesChime(t *testing.T) {
	inj := &fakeInjector{}
	chime := &fakeChimer{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeHotkey
	cfg.OutputMode = OutputModeStream
	cfg.EndSignal = false
	c := NewCoordinator(cfg, inj, nil, chime, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected StateDictating")
	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle")

	if got := chime.snapshot(); len(got) != 0 {
		t.Errorf("played = %v, want none when end_signal is false", got)
	}
}

func TestCoordinatorEndSignalPlaysStartAndStopChimes(t *testing.T) {
	inj := &fakeInjector{}
	chime := &fakeChimer{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeHotkey
	cfg.OutputMode = OutputModeStream
	cfg.EndSignal = true
	c := NewCoordinator(cfg, inj, nil, chime, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected StateDictating")
	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateIdle }, "expected StateIdle")

	waitFor(t, func() bool {
		got := chime.snapshot()
		return len(got) == 2 && got[0] == "start" && got[1] == "stop"
	}, "expected start then stop chimes")
}

func TestCoordinatorListenModeWakeThenDictate(t *testing.T) {
	inj := &fakeInjector{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeListen
	cfg.OutputMode = OutputModeStream
	c := NewCoordinator(cfg, inj, nil, nil, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateListening }, "expected StateListening")

	c.results <- workerResult{Text: "марфуша"}
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected wake word to trigger DICTATING")

	injected, _ := inj.snapshot()
	if len(injected) != 0 {
		t.Errorf("injected = %v, want none on wake-word-only transcript", injected)
	}

	c.results <- workerResult{Text: "включи свет"}
	waitFor(t, func() bool {
		injected, _ := inj.snapshot()
		return len(injected) == 1 && injected[0] == "включи свет"
	}, "expected streamed dictation to inject after wake")
}

func TestCoordinatorListenBatchAccumulationThenWakeStop(t *testing.T) {
	inj := &fakeInjector{}
	cap := &fakeCapture{}
	cfg := testConfig()
	cfg.InputMode = InputModeListen
	cfg.OutputMode = OutputModeBatch
	c := NewCoordinator(cfg, inj, nil, nil, cap, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Toggle()
	waitFor(t, func() bool { return c.State() == StateListening }, "expected StateListening")

	c.results <- workerResult{Text: "марфуша"}
	waitFor(t, func() bool { return c.State() == StateDictating }, "expected wake word to trigger DICTATING")

	c.results <- workerResult{Text: "первая часть"}
	c.results <- workerResult{Text: "вторая часть"}
	waitFor(t, func() bool { return c.Session().TextCount() == 2 }, "expected both segments accumulated")

	c.results <- workerResult{Text: "марфуша"}
	waitFor(t, func() bool {
		injected, _ := inj.snapshot()
		return len(injected) == 1
	}, "expected accumulated text flushed on wake-triggered stop")

	waitFor(t, func() bool { return c.State() == StateListening }, "expected return to StateListening, not StateIdle")

	injected, _ := inj.snapshot()
	if injected[0] != "первая часть вторая часть" {
		t.Errorf("injected = %v, want accumulated text joined", injected)
	}
}
