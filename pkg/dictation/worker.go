package dictation

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vtype-dev/vtyped/pkg/audio"
)

// Segment is a bounded span of speech PCM captured by the VAD, queued for
// transcription. Model is resolved by the coordinator at submission time
// from the live state (spec's listen-mode model selection), not fixed for
// the life of the worker.
type Segment struct {
	PCM        []byte
	DurationMS int
	Model      string
}

// workerResult is what the segment worker reports back to the coordinator
// once a segment has been transcribed and filtered. Exactly one of Text or
// Err is meaningful; an empty Text with a nil Err means the segment produced
// no usable transcript (hallucination, blank audio, or below min-speech
// duration never having reached here at all).
type workerResult struct {
	Text string
	Err  error
}

// segmentWorker drains segCh until it is closed or ctx is cancelled,
// transcribing each segment and delivering the filtered result to results.
// It runs on its own goroutine; there is never more than one in flight, so
// transcriptions are processed strictly in submission order.
func segmentWorker(ctx context.Context, segCh <-chan *Segment, transcriber *Transcriber, results chan<- workerResult, logger Logger) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case seg, ok := <-segCh:
			if !ok {
				return
			}
			if seg == nil {
				continue
			}
			text, err := transcribeSegment(ctx, seg, transcriber, logger)
			select {
			case results <- workerResult{Text: text, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func transcribeSegment(ctx context.Context, seg *Segment, transcriber *Transcriber, logger Logger) (string, error) {
	f, err := os.CreateTemp("", "vtyped-seg-*.wav")
	if err != nil {
		return "", fmt.Errorf("create segment wav: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := audio.WriteWAVFile(path, seg.PCM); err != nil {
		return "", fmt.Errorf("write segment wav: %w", err)
	}

	start := time.Now()
	text, err := transcriber.Transcribe(ctx, path, seg.Model)
	if err != nil {
		logger.Error("transcription failed", "err", err)
		return "", err
	}
	logger.Debug("transcribed segment", "duration_ms", seg.DurationMS, "elapsed", time.Since(start))

	if text == "" {
		return "", nil
	}
	durationS := float64(seg.DurationMS) / 1000.0
	if IsHallucination(text, durationS) {
		logger.Debug("dropped hallucinated transcript", "text", text)
		return "", nil
	}
	return text, nil
}
