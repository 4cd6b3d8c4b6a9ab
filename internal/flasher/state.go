package flasher

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateSynchronized
	StateErased
	StateProgramming
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSynchronized:
		return "synchronized"
	case StateErased:
		return "erased"
	case StateProgramming:
		return "programming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further operations are accepted.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}
