package game

// State is the round lifecycle state.
type State int

// Round lifecycle states. RoundEnd and RoundEndPaused are terminal: the
// round is immutable once either is reached.
const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateRoundEnd
	StateRoundEndPaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRoundEnd:
		return "round-end"
	case StateRoundEndPaused:
		return "round-end-paused"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a round.
func (s State) Terminal() bool {
	return s == StateRoundEnd || s == StateRoundEndPaused
}

// transitions is the exhaustive set of legal state transitions. Anything
// not listed is rejected by setState.
var transitions = map[State][]State{
	StateIdle:           {StateLoading},
	StateLoading:        {StatePlaying, StateIdle, StateLoading},
	StatePlaying:        {StatePaused, StateIdle, StateRoundEnd},
	StatePaused:         {StatePlaying, StateIdle, StateRoundEndPaused},
	StateRoundEnd:       {StateLoading},
	StateRoundEndPaused: {StateLoading},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
