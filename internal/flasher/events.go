package flasher

// EventKind identifies a status event.
type EventKind int

const (
	EventSynchronized EventKind = iota
	EventChipIDReceived
	EventEraseStarted
	EventEraseComplete
	EventChunkWritten
	EventUploadComplete
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSynchronized:
		return "synchronized"
	case EventChipIDReceived:
		return "chip id received"
	case EventEraseStarted:
		return "erase started"
	case EventEraseComplete:
		return "erase complete"
	case EventChunkWritten:
		return "chunk written"
	case EventUploadComplete:
		return "upload complete"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a status report emitted by a Session. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind EventKind

	// EventChipIDReceived
	ChipID ChipID

	// EventChunkWritten
	Address      uint32
	Length       int
	BytesWritten int

	// EventChunkWritten, EventUploadComplete
	TotalBytes int

	// EventFailed
	Stage string
	Err   error
}

// EventSink receives status events. Implementations should return quickly.
type EventSink func(Event)
