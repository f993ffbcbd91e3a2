package audio

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Recorder drives a recorder subprocess that writes directly to a temporary
// WAV file, used by hotkey+batch mode where the whole utterance is
// transcribed at once rather than streamed through the VAD.
type Recorder struct {
	device Device
	logger Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	wavPath string
}

func NewRecorder(device Device, logger Logger) *Recorder {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Recorder{device: device, logger: logger}
}

// Start spawns the recorder and returns the path of the WAV file it is
// writing to. The caller owns that file and must remove it (Cleanup does
// this automatically).
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return "", fmt.Errorf("recorder already running")
	}

	f, err := os.CreateTemp("", "vtyped-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()
	f.Close()

	args := buildRecordCmd(r.device, path)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = nil
	stderrBuf := &limitedBuffer{limit: 4096}
	cmd.Stderr = stderrBuf

	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return "", &CaptureStartFailedError{Cmd: args[0], Stderr: err.Error()}
	}

	time.Sleep(200 * time.Millisecond)
	if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		os.Remove(path)
		return "", &CaptureStartFailedError{Cmd: args[0], Stderr: stderrBuf.String()}
	}

	r.cmd = cmd
	r.wavPath = path
	r.logger.Info("recording started", "path", path, "cmd", args[0])
	return path, nil
}

// Stop signals the recorder to finish writing and returns the WAV path.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil {
		return "", nil
	}
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Signal(syscall.SIGINT)
	}
	waitDone := make(chan struct{})
	go func() { r.cmd.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		if r.cmd.Process != nil {
			_ = r.cmd.Process.Kill()
		}
		<-waitDone
	}
	path := r.wavPath
	r.cmd = nil
	r.logger.Info("recording stopped", "path", path)
	return path, nil
}

// Cleanup stops the recorder if still running and removes the temp file.
func (r *Recorder) Cleanup() {
	path, _ := r.Stop()
	if path != "" {
		os.Remove(path)
	}
	r.mu.Lock()
	r.wavPath = ""
	r.mu.Unlock()
}
