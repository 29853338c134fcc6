package processor

import "fmt"

type State int

const (
	Uninitialized State = iota
	Initializing
	ModelLoading
	Ready
	Failed
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case ModelLoading:
		return "model_loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText lets snapshots render states by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
