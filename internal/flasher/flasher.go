// Package flasher drives the STM32 USART system bootloader (AN3155):
// synchronization, GET ID, mass erase and chunked WRITE MEMORY uploads.
//
// A Session owns no transport; it borrows a Port for the duration of one
// flashing run. Sessions are not safe for concurrent use.
package flasher

import (
	"fmt"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// Session runs bootloader operations over a single port.
type Session struct {
	port   Port
	cfg    Config
	state  State
	err    error
	chipID ChipID
}

// New creates a new Session for the given port.
func New(port Port, opts ...Option) *Session {
	return &Session{
		port: port,
		cfg:  newConfig(opts),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Err returns the error that moved the session to StateFailed.
func (s *Session) Err() error {
	return s.err
}

// ChipID returns the identifier received by GetChipID, or nil.
func (s *Session) ChipID() ChipID {
	return s.chipID.clone()
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Flash runs the full programming sequence on a synchronized session:
// optional GET ID, mass erase, then upload of image at base.
func (s *Session) Flash(image []byte, base uint32) error {
	if err := s.expect("flash", StateSynchronized); err != nil {
		return err
	}

	if s.cfg.QueryChipID || s.cfg.ExpectedChipID != nil {
		if _, err := s.GetChipID(); err != nil {
			return err
		}
	}

	if err := s.EraseAll(); err != nil {
		return err
	}

	return s.Upload(image, base)
}

// emit delivers an event to the configured sink.
func (s *Session) emit(ev Event) {
	if s.cfg.Sink != nil {
		s.cfg.Sink(ev)
	}
}

// fail moves the session to StateFailed and reports err.
func (s *Session) fail(op string, err error) error {
	s.state = StateFailed
	s.err = err
	pkgLog.Infof("%s failed: %v", op, err)
	s.emit(Event{Kind: EventFailed, Stage: op, Err: err})
	return err
}

// expect checks that the session is in one of the allowed states.
func (s *Session) expect(op string, allowed ...State) error {
	if s.state.Terminal() {
		return fmt.Errorf("%s: %w (%s)", op, ErrSessionClosed, s.state)
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%s: %w: session is %s", op, ErrInvalidState, s.state)
}

func checkAck(cmd byte, stage Stage, b byte) error {
	switch protocol.ClassifyResponse(b) {
	case protocol.ResponseACK:
		return nil
	case protocol.ResponseNACK:
		return &ProtocolError{Command: cmd, Stage: stage, Kind: ErrNack, Got: b}
	default:
		return &ProtocolError{Command: cmd, Stage: stage, Kind: ErrUnexpectedByte, Got: b}
	}
}
