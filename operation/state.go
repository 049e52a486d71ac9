package operation

// State is an Operation's lifecycle position.
type State int

const (
	StateNew State = iota
	StateQueued
	StateStarted
	StateFinished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateQueued:
		return "QUEUED"
	case StateStarted:
		return "STARTED"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}
