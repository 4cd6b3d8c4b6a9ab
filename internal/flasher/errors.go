package flasher

import (
	"errors"
	"fmt"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// Error kinds. Every error returned by a Session matches one of these with errors.Is.
var (
	ErrNoResponse     = errors.New("no response")
	ErrUnexpectedByte = errors.New("unexpected byte")
	ErrNack           = errors.New("NACK received")
	ErrDesync         = errors.New("framing lost")
	ErrTransport      = errors.New("transport failure")
	ErrChunkFailed    = errors.New("chunk write failed")
	ErrChipMismatch   = errors.New("chip id mismatch")
	ErrSessionClosed  = errors.New("session closed")
	ErrInvalidState   = errors.New("invalid session state")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrEmptyImage     = errors.New("empty image")
)

// Stage identifies the step of a command exchange that failed.
type Stage string

const (
	StageInit     Stage = "init"
	StageCommand  Stage = "command"
	StageLength   Stage = "length"
	StageID       Stage = "id"
	StageFinal    Stage = "final"
	StageSelector Stage = "selector"
	StageAddress  Stage = "address"
	StageData     Stage = "data"
)

// ProtocolError describes a failed bootloader exchange.
type ProtocolError struct {
	Command byte  // Opcode of the exchange
	Stage   Stage // Step that failed
	Kind    error // One of the Err* kinds
	Got     byte  // Received byte for ErrNack and ErrUnexpectedByte
	Want    int   // Declared byte count for ErrDesync
	Have    int   // Received byte count for ErrDesync
	Err     error // Underlying transport error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: %s stage: %v", protocol.CommandName(e.Command), e.Stage, e.Kind)
	switch {
	case errors.Is(e.Kind, ErrNack), errors.Is(e.Kind, ErrUnexpectedByte):
		msg += fmt.Sprintf(" (0x%02X)", e.Got)
	case errors.Is(e.Kind, ErrDesync) && e.Want > 0:
		msg += fmt.Sprintf(" (got %d of %d bytes)", e.Have, e.Want)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *ProtocolError) Is(target error) bool {
	return target == e.Kind
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ChunkError reports the upload chunk the device rejected.
type ChunkError struct {
	Address uint32
	Cause   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk at 0x%08X failed: %v", e.Address, e.Cause)
}

func (e *ChunkError) Is(target error) bool {
	return target == ErrChunkFailed
}

func (e *ChunkError) Unwrap() error {
	return e.Cause
}

// ChipMismatchError indicates that the device reported an unexpected chip id.
type ChipMismatchError struct {
	Expected ChipID
	Actual   ChipID
}

func (e *ChipMismatchError) Error() string {
	return fmt.Sprintf("chip id mismatch: expected %s, device reports %s", e.Expected, e.Actual)
}

func (e *ChipMismatchError) Is(target error) bool {
	return target == ErrChipMismatch
}

// IsRecoverable reports whether err may be cleared by resetting the device
// and synchronizing again. Only a silent bootloader during synchronize is.
func IsRecoverable(err error) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Command == protocol.CmdInit && errors.Is(pe.Kind, ErrNoResponse)
}

// FailedStage returns a short description of where err was raised, for
// reporting in the CLI.
func FailedStage(err error) string {
	var ce *ChunkError
	if errors.As(err, &ce) {
		var pe *ProtocolError
		if errors.As(ce.Cause, &pe) {
			return fmt.Sprintf("upload at 0x%08X (%s stage)", ce.Address, pe.Stage)
		}
		return fmt.Sprintf("upload at 0x%08X", ce.Address)
	}

	var pe *ProtocolError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s (%s stage)", protocol.CommandName(pe.Command), pe.Stage)
	}

	var me *ChipMismatchError
	if errors.As(err, &me) {
		return "chip id check"
	}
	return "unknown"
}
