package dictation

import (
	"sync/atomic"
	"time"
)

// MuteWindow gates incoming audio for a short span after the daemon plays
// its own chime, the same concern the teacher's echo suppressor addresses
// for conversational audio (don't let self-generated sound re-enter the
// pipeline) but solved here with a plain deadline rather than sample
// correlation, since chimes are short fixed clips rather than arbitrary
// played-back speech. Arm runs on the coordinator goroutine; Active runs on
// the audio reader goroutine, hence the atomic.
type MuteWindow struct {
	untilUnixNano atomic.Int64
}

// Arm starts (or extends) the mute window for d from now.
func (m *MuteWindow) Arm(now time.Time, d time.Duration) {
	m.untilUnixNano.Store(now.Add(d).UnixNano())
}

// Active reports whether now falls within the armed window.
func (m *MuteWindow) Active(now time.Time) bool {
	return now.UnixNano() < m.untilUnixNano.Load()
}
