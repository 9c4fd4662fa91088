package console

// State REPL 所处阶段
type State int

const (
	AwaitingInput State = iota
	Embedding
	Querying
	Displaying
	Exited
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Embedding:
		return "embedding"
	case Querying:
		return "querying"
	case Displaying:
		return "displaying"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}
