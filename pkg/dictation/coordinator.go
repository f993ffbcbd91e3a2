package dictation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Injector is the capability the coordinator needs from the text-injection
// layer. pkg/inject.TextInjector satisfies this directly and cmd/vtyped
// passes it in, keeping this package free of a direct dependency on
// display-server concerns.
type Injector interface {
	Inject(ctx context.Context, text string) error
	SendKey(ctx context.Context, key string) error
}

// FocusManager is the capability the coordinator needs to save/restore the
// previously-focused window around a dictation session.
// pkg/inject.FocusManager satisfies this.
type FocusManager interface {
	Save(ctx context.Context) (windowID string, err error)
	Restore(ctx context.Context, windowID string) error
}

// Chimer plays a short notification sound, e.g. on recording start/stop.
type Chimer interface {
	Play(kind string)
}

type noopChimer struct{}

func (noopChimer) Play(string) {}

// AudioCapture is the capability the coordinator needs to stream raw PCM
// from the microphone for VAD-gated sessions (listen mode and hotkey+stream
// mode). pkg/audio.Capture satisfies this.
type AudioCapture interface {
	Start(ctx context.Context, onData func([]byte)) error
	Stop()
}

// AudioRecorder is the capability the coordinator needs for whole-utterance
// batch recording (hotkey+batch mode). pkg/audio.Recorder satisfies this.
type AudioRecorder interface {
	Start() (string, error)
	Stop() (string, error)
	Cleanup()
}

// message tags sent into the coordinator's single channel. This is the
// tagged-message-passing translation of the original daemon's UI-thread
// callback architecture: every external event becomes a value delivered to
// one goroutine instead of a callback invoked on the caller's own thread.
type message interface{ isMessage() }

type toggleMsg struct{}
type vadStartMsg struct{}
type vadEndMsg struct {
	pcm        []byte
	durationMS int
}
type workerResultMsg struct {
	text string
	err  error
}
type silenceTimerMsg struct{}
type shutdownMsg struct{}

func (toggleMsg) isMessage()       {}
func (vadStartMsg) isMessage()     {}
func (vadEndMsg) isMessage()       {}
func (workerResultMsg) isMessage() {}
func (silenceTimerMsg) isMessage() {}
func (shutdownMsg) isMessage()     {}

// Coordinator is the single-writer state machine governing dictation state,
// the accumulated-text buffer, the silence timer, the previous-window id,
// and the mute window. All of those fields are touched only from Run's
// goroutine; everything else talks to the coordinator exclusively by
// sending into msgCh.
type Coordinator struct {
	cfg         Config
	vad         *VAD
	wake        *WakeWordDetector
	commands    *VoiceCommands
	transcriber *Transcriber
	injector    Injector
	focus       FocusManager
	chime       Chimer
	capture     AudioCapture
	recorder    AudioRecorder
	logger      Logger
	onEvent     func(Event)

	msgCh   chan message
	segCh   chan *Segment
	results chan workerResult

	state   State
	session *Session
	mute    MuteWindow

	silenceTimer *time.Timer
	streamCancel context.CancelFunc
}

// NewCoordinator wires up a coordinator. focus, chime, capture, and recorder
// may be nil: focus save/restore and chimes become no-ops, and the
// corresponding IDLE transition (hotkey+stream/listen for a nil capture,
// hotkey+batch for a nil recorder) fails harmlessly, logging an error
// instead of starting a session. onEvent may be nil.
func NewCoordinator(cfg Config, injector Injector, focus FocusManager, chime Chimer, capture AudioCapture, recorder AudioRecorder, logger Logger, onEvent func(Event)) *Coordinator {
	if logger == nil {
		logger = NoOpLogger{}
	}
	if chime == nil {
		chime = noopChimer{}
	}
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	c := &Coordinator{
		cfg:      cfg,
		injector: injector,
		focus:    focus,
		chime:    chime,
		capture:  capture,
		recorder: recorder,
		logger:   logger,
		onEvent:  onEvent,
		msgCh:    make(chan message, 16),
		segCh:    make(chan *Segment, 4),
		results:  make(chan workerResult, 4),
		state:    StateIdle,
		session:  NewSession(),
	}

	c.vad = NewVAD(cfg.VADThreshold, cfg.MinSpeechMS, cfg.MaxSpeechS, c.handleVADStart, c.handleVADEnd)
	c.transcriber = NewTranscriber(cfg.TranscriberCLI, cfg.Threads, cfg.Language, cfg.GPUDevice, logger)
	if cfg.WakeWord != "" {
		c.wake = NewWakeWordDetector(cfg.WakeWord, cfg.WakeWordSuffixes)
	}
	if cfg.VoiceCommands {
		c.commands = NewVoiceCommands(DefaultVoiceCommands)
	}
	return c
}

// handleVADStart/handleVADEnd run on the VAD's caller goroutine (the audio
// reader), so they only ever translate into a tagged message — they never
// touch coordinator state directly.
func (c *Coordinator) handleVADStart() {
	c.send(vadStartMsg{})
}

func (c *Coordinator) handleVADEnd(pcm []byte) {
	c.send(vadEndMsg{pcm: pcm, durationMS: durationMSFromPCM(pcm)})
}

func durationMSFromPCM(pcm []byte) int {
	return len(pcm) * 1000 / (vadSampleRate * vadBytesPerSample)
}

func (c *Coordinator) send(m message) {
	select {
	case c.msgCh <- m:
	default:
		c.logger.Warn("coordinator message dropped, channel full")
	}
}

// FeedAudio delivers a raw PCM chunk from the capture reader goroutine into
// the VAD, honoring the mute window.
func (c *Coordinator) FeedAudio(pcm []byte) {
	if c.mute.Active(time.Now()) {
		return
	}
	c.vad.Feed(pcm)
}

// Toggle is called from the hotkey/signal handler to start or stop a
// dictation session.
func (c *Coordinator) Toggle() { c.send(toggleMsg{}) }

// Shutdown requests the coordinator loop to exit, first forcing the state
// machine back to IDLE (stopping any in-flight recorder/capture/worker).
func (c *Coordinator) Shutdown() { c.send(shutdownMsg{}) }

// Run is the coordinator's single goroutine. It owns all session state and
// must be the only reader of msgCh and results.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.msgCh:
			if _, ok := m.(shutdownMsg); ok {
				c.stopSilenceTimer()
				c.forceIdle(ctx)
				return
			}
			c.handle(ctx, m)
		case r := <-c.results:
			c.handle(ctx, workerResultMsg{text: r.Text, err: r.Err})
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, m message) {
	switch msg := m.(type) {
	case toggleMsg:
		c.onToggle(ctx)
	case vadStartMsg:
		c.onVADStart(ctx)
	case vadEndMsg:
		c.onVADEnd(ctx, msg.pcm, msg.durationMS)
	case workerResultMsg:
		c.onWorkerResult(ctx, msg.text, msg.err)
	case silenceTimerMsg:
		c.onSilenceTimer(ctx)
	}
}

func (c *Coordinator) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.onEvent(Event{Type: EventStateChanged, State: s})
}

// onToggle dispatches the hotkey-mode or listen-mode transition table
// (spec §4.9.1) according to the configured input mode.
func (c *Coordinator) onToggle(ctx context.Context) {
	if c.cfg.InputMode == InputModeListen {
		c.toggleListen(ctx)
		return
	}
	c.toggleHotkey(ctx)
}

func (c *Coordinator) toggleHotkey(ctx context.Context) {
	switch c.state {
	case StateIdle:
		if c.cfg.OutputMode == OutputModeBatch {
			c.startRecordingBatch(ctx)
		} else {
			c.startDictatingStream(ctx)
		}
	case StateRecording:
		c.stopRecordingBatch(ctx)
	case StateDictating:
		c.stopDictatingStream(ctx)
	}
}

func (c *Coordinator) toggleListen(ctx context.Context) {
	switch c.state {
	case StateIdle:
		c.startListening(ctx)
	case StateListening, StateDictating:
		c.stopListening(ctx)
	}
}

// startRecordingBatch: IDLE --toggle(hotkey+batch)--> RECORDING.
func (c *Coordinator) startRecordingBatch(ctx context.Context) {
	c.saveFocus(ctx)
	if c.recorder == nil {
		c.logger.Error("hotkey+batch mode requires a recorder")
		return
	}
	if _, err := c.recorder.Start(); err != nil {
		c.logger.Error("failed to start recording", "err", err)
		c.onEvent(Event{Type: EventError, Err: err.Error()})
		return
	}
	c.setState(StateRecording)
}

// stopRecordingBatch: RECORDING --toggle--> PROCESSING, spawning the
// one-shot whole-utterance transcription task.
func (c *Coordinator) stopRecordingBatch(ctx context.Context) {
	wavPath, err := c.recorder.Stop()
	if err != nil || wavPath == "" {
		c.setState(StateIdle)
		return
	}
	c.setState(StateProcessing)
	go c.transcribeBatch(ctx, wavPath)
}

func (c *Coordinator) transcribeBatch(ctx context.Context, wavPath string) {
	defer os.Remove(wavPath)
	text, err := c.transcriber.Transcribe(ctx, wavPath, c.cfg.Model)
	c.send(workerResultMsg{text: text, err: err})
}

// startDictatingStream: IDLE --toggle(hotkey+stream)--> DICTATING.
func (c *Coordinator) startDictatingStream(ctx context.Context) {
	c.saveFocus(ctx)
	if err := c.startStreaming(ctx); err != nil {
		c.logger.Error("failed to start audio stream", "err", err)
		c.onEvent(Event{Type: EventError, Err: err.Error()})
		return
	}
	c.setState(StateDictating)
	c.playChime("start")
}

// stopDictatingStream: DICTATING(hotkey+stream) --toggle--> IDLE.
func (c *Coordinator) stopDictatingStream(ctx context.Context) {
	c.stopSilenceTimer()
	c.flushAccumulated(ctx)
	c.stopStreaming()
	c.setState(StateIdle)
	c.playChime("stop")
}

// startListening: IDLE --toggle(listen+*)--> LISTENING.
func (c *Coordinator) startListening(ctx context.Context) {
	c.saveFocus(ctx)
	if err := c.startStreaming(ctx); err != nil {
		c.logger.Error("failed to start audio stream", "err", err)
		c.onEvent(Event{Type: EventError, Err: err.Error()})
		return
	}
	c.setState(StateListening)
}

// stopListening: LISTENING|DICTATING(listen) --toggle--> IDLE. No chime.
func (c *Coordinator) stopListening(ctx context.Context) {
	c.stopSilenceTimer()
	c.flushAccumulated(ctx)
	c.stopStreaming()
	c.setState(StateIdle)
}

// forceIdle drives any non-IDLE state back to IDLE, cleaning up whatever
// subprocess that state owns. Used on shutdown (spec §4.9.1, any non-IDLE +
// signal_term --> IDLE).
func (c *Coordinator) forceIdle(ctx context.Context) {
	switch c.state {
	case StateRecording:
		if c.recorder != nil {
			if path, _ := c.recorder.Stop(); path != "" {
				os.Remove(path)
			}
		}
	case StateListening:
		c.stopListening(ctx)
		return
	case StateDictating:
		if c.cfg.InputMode == InputModeHotkey {
			c.stopDictatingStream(ctx)
		} else {
			c.stopListening(ctx)
		}
		return
	}
	c.setState(StateIdle)
}

func (c *Coordinator) saveFocus(ctx context.Context) {
	if c.focus == nil {
		return
	}
	id, err := c.focus.Save(ctx)
	if err != nil {
		c.logger.Warn("focus save failed", "err", err)
		return
	}
	c.session.SetPrevWindowID(id)
}

// startStreaming launches the capture subprocess and the segment worker
// that backs any VAD-gated session (listen mode or hotkey+stream).
func (c *Coordinator) startStreaming(ctx context.Context) error {
	if c.capture == nil {
		return fmt.Errorf("no audio capture configured")
	}
	streamCtx, cancel := context.WithCancel(ctx)
	go segmentWorker(streamCtx, c.segCh, c.transcriber, c.results, c.logger)
	if err := c.capture.Start(streamCtx, c.FeedAudio); err != nil {
		cancel()
		return err
	}
	c.streamCancel = cancel
	c.vad.Reset()
	return nil
}

func (c *Coordinator) stopStreaming() {
	if c.capture != nil {
		c.capture.Stop()
	}
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
}

// playChime plays kind ("start" or "stop") and arms the mute window, gated
// on cfg.EndSignal exactly as the original daemon's chime functions are
// (end_signal disables both the sound and the self-trigger suppression).
func (c *Coordinator) playChime(kind string) {
	if !c.cfg.EndSignal {
		return
	}
	c.mute.Arm(time.Now(), 600*time.Millisecond)
	c.vad.Reset()
	c.chime.Play(kind)
}

func (c *Coordinator) onVADStart(ctx context.Context) {
	if c.state == StateDictating {
		c.stopSilenceTimer()
	}
}

func (c *Coordinator) onVADEnd(ctx context.Context, pcm []byte, durationMS int) {
	if c.state == StateDictating {
		c.stopSilenceTimer()
	}
	switch c.state {
	case StateListening, StateDictating:
		c.submitSegment(ctx, pcm, durationMS)
	}
}

func (c *Coordinator) submitSegment(ctx context.Context, pcm []byte, durationMS int) {
	seg := &Segment{PCM: pcm, DurationMS: durationMS, Model: c.modelForState()}
	select {
	case c.segCh <- seg:
	case <-ctx.Done():
	}
}

// modelForState implements the listen-mode model selection (spec §4.9.4):
// a lighter wake_model while LISTENING, the main model everywhere else
// (always the main model while DICTATING).
func (c *Coordinator) modelForState() string {
	if c.state == StateListening && c.cfg.ListenModel != "" {
		return c.cfg.ListenModel
	}
	return c.cfg.Model
}

func (c *Coordinator) onWorkerResult(ctx context.Context, text string, err error) {
	if err != nil {
		c.onEvent(Event{Type: EventError, Err: err.Error()})
	}

	switch c.state {
	case StateProcessing:
		if text != "" {
			c.restoreFocus(ctx)
			c.injectDelivered(ctx, text)
		} else {
			c.onEvent(Event{Type: EventTranscript, Text: ""})
		}
		c.setState(StateIdle)
		c.playChime("stop")
	case StateListening:
		c.handleListeningResult(ctx, text)
	case StateDictating:
		c.handleDictatingResult(ctx, text)
	}
}

// handleListeningResult implements the wake-word arbitration (spec §4.6,
// §4.9.1 row 9): a transcript in LISTENING only produces a transition, never
// an injection, once the wake word is recognized.
func (c *Coordinator) handleListeningResult(ctx context.Context, text string) {
	if text == "" || c.wake == nil || !c.wake.Contains(text) {
		return
	}
	c.stopSilenceTimer()
	c.session.DrainTexts()
	c.setState(StateDictating)
	c.playChime("start")
	c.onEvent(Event{Type: EventWakeWordDetected})
}

// handleDictatingResult implements the DICTATING worker.result rows of
// spec §4.9.1: wake-word stop (row 11), stream output (row 12), and batch
// output (row 13). The wake check only applies in listen mode — in
// hotkey+stream mode no wake detector is ever consulted.
func (c *Coordinator) handleDictatingResult(ctx context.Context, text string) {
	if text == "" {
		return
	}

	if c.cfg.InputMode == InputModeListen && c.wake != nil && c.wake.Contains(text) {
		c.stopSilenceTimer()
		remainder := c.wake.Strip(text)
		if remainder != "" {
			if c.cfg.OutputMode == OutputModeStream {
				c.restoreFocus(ctx)
				c.injectDelivered(ctx, remainder)
			} else {
				c.session.AppendText(remainder)
			}
		}
		c.flushAccumulated(ctx)
		c.setState(StateListening)
		c.onEvent(Event{Type: EventWakeWordDetected})
		return
	}

	if c.cfg.OutputMode == OutputModeStream {
		c.restoreFocus(ctx)
		c.injectDelivered(ctx, text)
	} else {
		c.session.AppendText(text)
	}
	if c.cfg.InputMode == InputModeListen {
		c.resetSilenceTimer(ctx)
	}
}

// injectDelivered is the single text-delivery entry point (mirrors the
// original daemon's _inject_text): it routes through voice-command
// processing when enabled, falling back to a plain inject.
func (c *Coordinator) injectDelivered(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if c.commands != nil {
		had := c.commands.Process(text,
			func(t string) { c.inject(ctx, t) },
			func(k string) { c.sendKey(ctx, k) },
		)
		if had {
			c.onEvent(Event{Type: EventCommandProcessed, Text: text})
			return
		}
	}
	c.inject(ctx, text)
	c.onEvent(Event{Type: EventTranscript, Text: text})
}

func (c *Coordinator) inject(ctx context.Context, text string) {
	if c.injector == nil || text == "" {
		return
	}
	if err := c.injector.Inject(ctx, text); err != nil {
		c.logger.Warn("injection failed", "err", err)
		c.onEvent(Event{Type: EventError, Err: err.Error()})
	}
}

func (c *Coordinator) sendKey(ctx context.Context, key string) {
	if c.injector == nil {
		return
	}
	if err := c.injector.SendKey(ctx, key); err != nil {
		c.logger.Warn("send key failed", "key", key, "err", err)
	}
}

// flushAccumulated joins and injects whatever batch-mode text has piled up
// in the session buffer, restoring focus first. A no-op when nothing has
// accumulated (stream mode never does).
func (c *Coordinator) flushAccumulated(ctx context.Context) {
	texts := c.session.DrainTexts()
	if len(texts) == 0 {
		return
	}
	c.restoreFocus(ctx)
	c.injectDelivered(ctx, strings.Join(texts, " "))
}

func (c *Coordinator) restoreFocus(ctx context.Context) {
	if c.focus == nil {
		return
	}
	id := c.session.PrevWindowID()
	if id == "" {
		return
	}
	if err := c.focus.Restore(ctx, id); err != nil {
		c.logger.Warn("focus restore failed", "err", err)
		c.onEvent(Event{Type: EventError, Err: (&FocusLostError{WindowID: id, Cause: err}).Error()})
	}
}

// resetSilenceTimer (re)arms the silence timeout that, once it fires, ends
// a listen-mode DICTATING session automatically without a toggle. Only
// meaningful in listen mode (spec: "silence_timer is non-null only in state
// DICTATING under input=listen").
func (c *Coordinator) resetSilenceTimer(ctx context.Context) {
	c.stopSilenceTimer()
	if c.cfg.InputMode != InputModeListen {
		return
	}
	d := time.Duration(c.cfg.SilenceTimeoutS * float64(time.Second))
	c.silenceTimer = time.AfterFunc(d, func() { c.send(silenceTimerMsg{}) })
}

func (c *Coordinator) stopSilenceTimer() {
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
		c.silenceTimer = nil
	}
}

func (c *Coordinator) onSilenceTimer(ctx context.Context) {
	if c.state != StateDictating {
		return
	}
	if c.vad.InSpeech() {
		c.resetSilenceTimer(ctx)
		return
	}
	c.flushAccumulated(ctx)
	c.setState(StateListening)
	c.playChime("stop")
}

// State exposes the current state for tests and statuspub. Safe to call
// from any goroutine; reads a snapshot, not a live reference, by the time it
// returns (callers should treat it as advisory for anything but tests that
// control the coordinator's own goroutine directly).
func (c *Coordinator) State() State { return c.state }

// Session returns the coordinator's session, for tests and statuspub.
func (c *Coordinator) Session() *Session { return c.session }
