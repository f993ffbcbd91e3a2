package dictation

import (
	"encoding/binary"
	"math"
	"sync"
)

const (
	frameMS             = 30
	trailingSilenceMS   = 300
	vadSampleRate       = 16000
	vadBytesPerSample   = 2
)

// VAD is an energy-based voice activity detector operating on raw s16le PCM.
// Unlike the teacher's RMSVAD, which normalizes RMS into a 0..1 range, the
// threshold here is compared against the raw RMS of signed 16-bit samples
// (the collaborator contract for vad_threshold is an integer in that range,
// commonly a few hundred).
type VAD struct {
	threshold     float64
	minSpeechMS   int
	maxSpeechS    float64
	onSpeechStart func()
	onSpeechEnd   func(pcm []byte)

	frameBytes    int
	silenceFrames int

	// mu guards everything below. Feed runs on the audio reader goroutine;
	// Reset is called from the coordinator goroutine after arming the mute
	// window, so both need to agree on buffer state.
	mu           sync.Mutex
	buffer       []byte
	speechBuffer []byte
	inSpeech     bool
	silentCount  int
}

// NewVAD builds a VAD from the daemon's threshold/duration settings.
// onSpeechStart and onSpeechEnd may be nil.
func NewVAD(threshold float64, minSpeechMS int, maxSpeechS float64, onSpeechStart func(), onSpeechEnd func([]byte)) *VAD {
	frameBytes := vadSampleRate * vadBytesPerSample * frameMS / 1000
	return &VAD{
		threshold:     threshold,
		minSpeechMS:   minSpeechMS,
		maxSpeechS:    maxSpeechS,
		onSpeechStart: onSpeechStart,
		onSpeechEnd:   onSpeechEnd,
		frameBytes:    frameBytes,
		silenceFrames: trailingSilenceMS / frameMS,
	}
}

// Reset clears all buffered state, used after the mute window following a
// chime so stray frames captured during playback never trigger speech. Safe
// to call from the coordinator goroutine while Feed runs on the audio
// reader goroutine.
func (v *VAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buffer = v.buffer[:0]
	v.speechBuffer = v.speechBuffer[:0]
	v.inSpeech = false
	v.silentCount = 0
}

// InSpeech reports whether the VAD currently believes speech is ongoing.
// The coordinator's silence timer only needs an approximate answer — a
// stale "true" merely delays the timer by one tick and a stale "false"
// merely fires it a tick early, both harmless — but it still takes the lock
// to avoid a torn read of inSpeech racing with Feed's frame loop.
func (v *VAD) InSpeech() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inSpeech
}

func rms(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sumSq float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		f := float64(s)
		sumSq += f * f
	}
	return math.Sqrt(sumSq / float64(n))
}

// Feed processes an arbitrarily-sized chunk of PCM, slicing it into 30ms
// frames and invoking onSpeechStart/onSpeechEnd as speech boundaries are
// crossed.
func (v *VAD) Feed(chunk []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buffer = append(v.buffer, chunk...)
	for len(v.buffer) >= v.frameBytes {
		frame := v.buffer[:v.frameBytes]
		v.buffer = v.buffer[v.frameBytes:]
		r := rms(frame)

		if r >= v.threshold {
			if !v.inSpeech {
				v.inSpeech = true
				v.silentCount = 0
				if v.onSpeechStart != nil {
					v.onSpeechStart()
				}
			}
			v.speechBuffer = append(v.speechBuffer, frame...)
			v.silentCount = 0
		} else if v.inSpeech {
			v.speechBuffer = append(v.speechBuffer, frame...)
			v.silentCount++
			if v.silentCount >= v.silenceFrames {
				v.emitSpeech()
			}
		}

		maxBytes := int(v.maxSpeechS * vadSampleRate * vadBytesPerSample)
		if v.inSpeech && len(v.speechBuffer) >= maxBytes {
			v.emitSpeech()
		}
	}
}

func (v *VAD) emitSpeech() {
	pcm := make([]byte, len(v.speechBuffer))
	copy(pcm, v.speechBuffer)
	durationMS := len(pcm) * 1000 / (vadSampleRate * vadBytesPerSample)
	v.speechBuffer = v.speechBuffer[:0]
	v.inSpeech = false
	v.silentCount = 0
	if durationMS >= v.minSpeechMS && v.onSpeechEnd != nil {
		v.onSpeechEnd(pcm)
	}
}
