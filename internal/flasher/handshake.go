package flasher

import (
	"fmt"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// Gate is invoked before each synchronize attempt to bring the device into
// its bootloader, e.g. by asking the operator to press reset.
type Gate func() error

// Synchronize sends the init byte and waits for the bootloader's ACK.
// The ROM accepts the init byte once per reset, so there is no retry here.
func (s *Session) Synchronize() error {
	if err := s.expect("synchronize", StateUninitialized); err != nil {
		return err
	}

	if err := s.port.ResetInputBuffer(); err != nil {
		return s.fail("synchronize", &ProtocolError{
			Command: protocol.CmdInit, Stage: StageInit, Kind: ErrTransport, Err: err,
		})
	}

	if err := s.send(protocol.CmdInit, StageInit, []byte{protocol.CmdInit}); err != nil {
		return s.fail("synchronize", err)
	}

	b, err := s.readResponse(protocol.CmdInit, StageInit, s.cfg.AckTimeout)
	if err != nil {
		return s.fail("synchronize", err)
	}
	if b != protocol.ACK {
		return s.fail("synchronize", &ProtocolError{
			Command: protocol.CmdInit, Stage: StageInit, Kind: ErrUnexpectedByte, Got: b,
		})
	}

	s.state = StateSynchronized
	pkgLog.Debugf("bootloader synchronized")
	s.emit(Event{Kind: EventSynchronized})
	return nil
}

// Connect runs gate and synchronizes a fresh Session, repeating both for up
// to Config.SyncAttempts times while the bootloader stays silent. Any other
// failure is returned immediately.
func Connect(port Port, gate Gate, opts ...Option) (*Session, error) {
	attempts := newConfig(opts).SyncAttempts

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if gate != nil {
			if err := gate(); err != nil {
				return nil, fmt.Errorf("reset gate: %w", err)
			}
		}

		s := New(port, opts...)
		err := s.Synchronize()
		if err == nil {
			return s, nil
		}
		if !IsRecoverable(err) {
			return nil, err
		}

		lastErr = err
		pkgLog.Infof("no response from bootloader (attempt %d/%d)", attempt, attempts)
	}

	return nil, fmt.Errorf("sync failed after %d attempts: %w", attempts, lastErr)
}
