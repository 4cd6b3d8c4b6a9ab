package protocol

// STM32 ROM bootloader commands (AN3155)
const (
	CmdInit          = 0x7F
	CmdGetID         = 0x02
	CmdExtendedErase = 0x44
	CmdWriteMemory   = 0x31
)

// Response bytes
const (
	ACK  = 0x79
	NACK = 0x1F
)

// Write parameters
const (
	MaxBlockSize = 256
	MinBlockSize = 1
)

// Mass erase selector for EXTENDED ERASE. The trailing byte is the XOR of
// the two selector bytes.
const (
	MassEraseHigh     = 0xFF
	MassEraseLow      = 0xFF
	MassEraseChecksum = 0x00
)

// Defaults for the serial link and the flash layout.
const (
	DefaultBaudRate     = 115200
	DefaultFlashAddress = 0x08000000
)

// Response classifies a single byte received from the bootloader.
type Response int

const (
	ResponseUnknown Response = iota
	ResponseACK
	ResponseNACK
)

// String returns a human-readable name for the response class.
func (r Response) String() string {
	switch r {
	case ResponseACK:
		return "ACK"
	case ResponseNACK:
		return "NACK"
	default:
		return "unknown"
	}
}

// ClassifyResponse maps a received byte to ACK, NACK or unknown.
func ClassifyResponse(b byte) Response {
	switch b {
	case ACK:
		return ResponseACK
	case NACK:
		return ResponseNACK
	default:
		return ResponseUnknown
	}
}

// CommandName returns human-readable name for a command opcode
func CommandName(op byte) string {
	switch op {
	case CmdInit:
		return "init"
	case CmdGetID:
		return "get id"
	case CmdExtendedErase:
		return "extended erase"
	case CmdWriteMemory:
		return "write memory"
	default:
		return "unknown command"
	}
}
