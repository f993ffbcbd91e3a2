// Package statuspub broadcasts dictation state and notification events to
// any connected subscriber (the tray process, in particular) over a local
// websocket, adapting the teacher's coder/websocket client usage
// (pkg/providers/tts/lokutor.go) into a server: this daemon has no TTS
// audio to stream, but the tray still needs a push channel for state
// changes instead of polling.
package statuspub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Event mirrors dictation.Event's shape without importing that package, to
// keep statuspub reusable as a thin transport layer.
type Event struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Text  string `json:"text,omitempty"`
	Err   string `json:"err,omitempty"`
}

// Logger is the structured logging interface used throughout this package.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// Publisher accepts websocket subscribers on a single HTTP handler and
// fans out every Publish call to all of them.
type Publisher struct {
	logger Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

func NewPublisher(logger Logger) *Publisher {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Publisher{logger: logger, subs: make(map[*subscriber]struct{})}
}

// Handler upgrades incoming HTTP requests to websocket connections and
// registers them as subscribers until they disconnect.
func (p *Publisher) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			p.logger.Warn("statuspub: accept failed", "err", err)
			return
		}
		sub := &subscriber{conn: conn, send: make(chan Event, 16)}

		p.mu.Lock()
		p.subs[sub] = struct{}{}
		p.mu.Unlock()

		defer func() {
			p.mu.Lock()
			delete(p.subs, sub)
			p.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "")
		}()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.send:
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, conn, ev); err != nil {
					p.logger.Debug("statuspub: write failed, dropping subscriber", "err", err)
					return
				}
			}
		}
	}
}

// Publish fans ev out to every connected subscriber, non-blocking: a
// subscriber whose send buffer is full is skipped for this event rather
// than slowing down the coordinator. Err is cut to at most 100 characters
// before it is sent.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	const maxErrRunes = 100
	if r := []rune(ev.Err); len(r) > maxErrRunes {
		ev.Err = string(r[:maxErrRunes])
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs {
		select {
		case sub.send <- ev:
		default:
			p.logger.Warn("statuspub: subscriber backlogged, dropping event")
		}
	}
}

// MarshalForLog renders ev as compact JSON, useful for debug logging
// alongside the structured logger's key-value pairs.
func MarshalForLog(ev Event) string {
	b, _ := json.Marshal(ev)
	return string(b)
}
