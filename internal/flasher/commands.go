package flasher

import (
	"errors"
	"fmt"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// GetChipID queries the product identifier.
//
// Exchange: command frame, ACK, length byte n, n+1 id bytes, ACK.
func (s *Session) GetChipID() (ChipID, error) {
	if err := s.expect("get id", StateSynchronized, StateErased); err != nil {
		return nil, err
	}

	id, err := s.getChipID()
	if err != nil {
		return nil, s.fail("get id", err)
	}

	s.chipID = id
	pkgLog.Debugf("chip id %s (%s)", id, id.Name())
	s.emit(Event{Kind: EventChipIDReceived, ChipID: id.clone()})

	if s.cfg.ExpectedChipID != nil && !id.Equal(s.cfg.ExpectedChipID) {
		return nil, s.fail("get id", &ChipMismatchError{
			Expected: s.cfg.ExpectedChipID.clone(),
			Actual:   id.clone(),
		})
	}

	return id.clone(), nil
}

func (s *Session) getChipID() (ChipID, error) {
	const cmd = protocol.CmdGetID

	if err := s.send(cmd, StageCommand, protocol.CommandFrame(cmd)); err != nil {
		return nil, err
	}
	if err := s.awaitAck(cmd, StageCommand, s.cfg.AckTimeout); err != nil {
		return nil, err
	}

	n, err := s.readResponse(cmd, StageLength, s.cfg.AckTimeout)
	if err != nil {
		return nil, err
	}

	id := make([]byte, int(n)+1)
	got, err := s.readFull(id, s.cfg.AckTimeout)
	if err != nil {
		return nil, &ProtocolError{Command: cmd, Stage: StageID, Kind: ErrTransport, Err: err}
	}
	if got < len(id) {
		return nil, &ProtocolError{Command: cmd, Stage: StageID, Kind: ErrDesync, Want: len(id), Have: got}
	}

	b, err := s.readResponse(cmd, StageFinal, s.cfg.AckTimeout)
	if err != nil {
		// The declared length consumed the device's ACK; the position in
		// the byte stream is unknown.
		if errors.Is(err, ErrNoResponse) {
			return nil, &ProtocolError{Command: cmd, Stage: StageFinal, Kind: ErrDesync}
		}
		return nil, err
	}
	if err := checkAck(cmd, StageFinal, b); err != nil {
		return nil, err
	}

	return ChipID(id), nil
}

// EraseAll performs a mass erase through EXTENDED ERASE with the 0xFFFF
// selector. The final ACK is awaited for Config.EraseTimeout.
func (s *Session) EraseAll() error {
	const cmd = protocol.CmdExtendedErase

	if err := s.expect("erase", StateSynchronized); err != nil {
		return err
	}

	s.emit(Event{Kind: EventEraseStarted})
	pkgLog.Debugf("mass erase started")

	if err := s.send(cmd, StageCommand, protocol.CommandFrame(cmd)); err != nil {
		return s.fail("erase", err)
	}
	if err := s.awaitAck(cmd, StageCommand, s.cfg.AckTimeout); err != nil {
		return s.fail("erase", err)
	}

	if err := s.send(cmd, StageSelector, protocol.MassEraseFrame()); err != nil {
		return s.fail("erase", err)
	}
	if err := s.awaitAck(cmd, StageSelector, s.cfg.EraseTimeout); err != nil {
		return s.fail("erase", err)
	}

	s.state = StateErased
	pkgLog.Debugf("mass erase complete")
	s.emit(Event{Kind: EventEraseComplete})
	return nil
}

// WriteBlock writes payload (1-256 bytes) at address. The session must be
// erased or already programming.
func (s *Session) WriteBlock(address uint32, payload []byte) error {
	if err := s.expect("write", StateErased, StateProgramming); err != nil {
		return err
	}
	if err := validatePayload(address, payload); err != nil {
		return err
	}

	s.state = StateProgramming
	if err := s.writeBlock(address, payload); err != nil {
		return s.fail("write", err)
	}
	return nil
}

func (s *Session) writeBlock(address uint32, payload []byte) error {
	const cmd = protocol.CmdWriteMemory

	if err := s.send(cmd, StageCommand, protocol.CommandFrame(cmd)); err != nil {
		return err
	}
	if err := s.awaitAck(cmd, StageCommand, s.cfg.AckTimeout); err != nil {
		return err
	}

	if err := s.send(cmd, StageAddress, protocol.AddressFrame(address)); err != nil {
		return err
	}
	if err := s.awaitAck(cmd, StageAddress, s.cfg.AckTimeout); err != nil {
		return err
	}

	if err := s.send(cmd, StageData, protocol.DataFrame(payload)); err != nil {
		return err
	}
	return s.awaitAck(cmd, StageData, s.cfg.AckTimeout)
}

func validatePayload(address uint32, payload []byte) error {
	if len(payload) < protocol.MinBlockSize || len(payload) > protocol.MaxBlockSize {
		return fmt.Errorf("%w: %d bytes, want %d-%d", ErrInvalidPayload,
			len(payload), protocol.MinBlockSize, protocol.MaxBlockSize)
	}
	if uint64(address)+uint64(len(payload)) > 1<<32 {
		return fmt.Errorf("%w: %d bytes at 0x%08X exceed the address space", ErrInvalidPayload,
			len(payload), address)
	}
	return nil
}
