// Package scripted provides an in-memory telemetry link that replays a
// fixed message sequence, used by engine tests and local dry runs.
package scripted

import (
	"sync"

	"sitlcheck/pkg/telemetry"
)

// Link replays a scripted message sequence. Once the script is
// exhausted (or Close is called) Recv returns telemetry.ErrLinkClosed,
// which exercises the fatal stream-closed path.
type Link struct {
	mu     sync.Mutex
	queue  []telemetry.Message
	closed bool
}

// NewLink creates a link that will replay msgs in order.
func NewLink(msgs ...telemetry.Message) *Link {
	return &Link{queue: msgs}
}

// Append adds messages to the end of the script.
func (l *Link) Append(msgs ...telemetry.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, msgs...)
}

// Recv pops the next scripted message.
func (l *Link) Recv() (telemetry.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.queue) == 0 {
		return nil, telemetry.ErrLinkClosed
	}
	m := l.queue[0]
	l.queue = l.queue[1:]
	return m, nil
}

// Close marks the link closed.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Remaining reports how many scripted messages are left unread.
func (l *Link) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Ticker builds the interleaved stream a wait loop consumes: for each
// data message, a time sample followed by the message, with sim time
// advancing by step seconds per pair.
type Ticker struct {
	t    float64
	step float64
}

// NewTicker starts a stream builder at the given sim time.
func NewTicker(start, step float64) *Ticker {
	return &Ticker{t: start, step: step}
}

// Time returns a time sample at the current sim time and advances it.
func (tk *Ticker) Time() telemetry.SystemTime {
	m := telemetry.SystemTime{TimeBootMs: uint32(tk.t * 1000.0)}
	tk.t += tk.step
	return m
}

// With returns a time sample followed by the given messages.
func (tk *Ticker) With(msgs ...telemetry.Message) []telemetry.Message {
	out := []telemetry.Message{tk.Time()}
	return append(out, msgs...)
}
