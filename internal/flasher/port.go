package flasher

import (
	"time"
)

// Port is the byte transport a Session talks through. internal/serial.Port
// implements it. ReadWithTimeout returns 0 bytes and a nil error when the
// timeout expires.
type Port interface {
	Write(data []byte) (int, error)
	ReadWithTimeout(buf []byte, timeout time.Duration) (int, error)
	Drain() error
	ResetInputBuffer() error
}

// send writes one frame and waits for it to leave the host.
func (s *Session) send(cmd byte, stage Stage, frame []byte) error {
	pkgLog.Debugf("> % X", frame)

	if _, err := s.port.Write(frame); err != nil {
		return &ProtocolError{Command: cmd, Stage: stage, Kind: ErrTransport, Err: err}
	}
	if err := s.port.Drain(); err != nil {
		return &ProtocolError{Command: cmd, Stage: stage, Kind: ErrTransport, Err: err}
	}
	return nil
}

// readFull reads until buf is full or the timeout expires and returns the
// number of bytes read.
func (s *Session) readFull(buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	wait := timeout
	got := 0

	for got < len(buf) {
		n, err := s.port.ReadWithTimeout(buf[got:], wait)
		got += n
		if err != nil {
			return got, err
		}
		if n == 0 {
			break
		}
		if wait = time.Until(deadline); wait <= 0 {
			break
		}
	}

	if got > 0 {
		pkgLog.Debugf("< % X", buf[:got])
	}
	return got, nil
}

// readResponse reads a single byte.
func (s *Session) readResponse(cmd byte, stage Stage, timeout time.Duration) (byte, error) {
	var buf [1]byte
	n, err := s.readFull(buf[:], timeout)
	if err != nil {
		return 0, &ProtocolError{Command: cmd, Stage: stage, Kind: ErrTransport, Err: err}
	}
	if n == 0 {
		return 0, &ProtocolError{Command: cmd, Stage: stage, Kind: ErrNoResponse}
	}
	return buf[0], nil
}

// awaitAck reads one byte and requires it to be ACK.
func (s *Session) awaitAck(cmd byte, stage Stage, timeout time.Duration) error {
	b, err := s.readResponse(cmd, stage, timeout)
	if err != nil {
		return err
	}
	return checkAck(cmd, stage, b)
}
