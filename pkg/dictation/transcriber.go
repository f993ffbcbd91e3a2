package dictation

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const transcribeTimeout = 300 * time.Second

// Transcriber invokes the configured whisper.cpp-compatible CLI against a
// WAV file on disk and returns the cleaned-up transcript.
type Transcriber struct {
	cli       string
	threads   int
	language  string
	gpuDevice int
	logger    Logger
}

func NewTranscriber(cli string, threads int, language string, gpuDevice int, logger Logger) *Transcriber {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Transcriber{cli: cli, threads: threads, language: language, gpuDevice: gpuDevice, logger: logger}
}

// Transcribe runs the CLI against wavPath using model, which the caller
// resolves (the main model, or listen mode's lighter model while
// LISTENING); the Transcriber holds no default model of its own and passes
// model through as given. Returns "" (not an error) for a segment
// whisper.cpp judged silent.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	args := []string{
		"-m", model,
		"-f", wavPath,
		"-nt", "-np",
		"-t", strconv.Itoa(t.threads),
		"-l", t.language,
		"-dev", strconv.Itoa(t.gpuDevice),
	}
	cmd := exec.CommandContext(ctx, t.cli, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		stderrHead := stderr.String()
		if len(stderrHead) > 500 {
			stderrHead = stderrHead[:500]
		}
		return "", &TranscriberFailedError{ExitCode: exitCode, StderrHead: stderrHead}
	}

	text := stdout.String()
	text = strings.ReplaceAll(text, "[BLANK_AUDIO]", "")
	text = strings.TrimSpace(text)
	return text, nil
}
