package flasher

import (
	"errors"
	"time"
)

// fakePort answers each Write with the next scripted reply. Bytes already
// buffered before a write are dropped by ResetInputBuffer, like a real UART.
type fakePort struct {
	rx       []byte
	replies  [][]byte
	writes   [][]byte
	timeouts []time.Duration
	drains   int
	resets   int
	writeErr error
	readErr  error
	resetErr error
}

func newFakePort(replies ...[]byte) *fakePort {
	return &fakePort{replies: replies}
}

func (p *fakePort) Write(data []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), data...))
	if len(p.replies) > 0 {
		p.rx = append(p.rx, p.replies[0]...)
		p.replies = p.replies[1:]
	}
	return len(data), nil
}

func (p *fakePort) ReadWithTimeout(buf []byte, timeout time.Duration) (int, error) {
	p.timeouts = append(p.timeouts, timeout)
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(buf, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *fakePort) Drain() error {
	p.drains++
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resets++
	p.rx = nil
	return nil
}

// written returns every byte sent to the port.
func (p *fakePort) written() []byte {
	var out []byte
	for _, w := range p.writes {
		out = append(out, w...)
	}
	return out
}

var errWire = errors.New("wire unplugged")

const (
	ack  = 0x79
	nack = 0x1F
)

// eventRecorder collects events from a Session.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []EventKind {
	kinds := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// syncedSession returns a session that has already completed Synchronize.
func syncedSession(port *fakePort, opts ...Option) *Session {
	s := New(port, opts...)
	s.state = StateSynchronized
	return s
}

// erasedSession returns a session ready for WriteBlock/Upload.
func erasedSession(port *fakePort, opts ...Option) *Session {
	s := New(port, opts...)
	s.state = StateErased
	return s
}
