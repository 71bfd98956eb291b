package experiment

import "fmt"

// State is a phase of the episode loop.
type State int

const (
	Idle State = iota
	Preparing
	Simulating
	Collecting
	Adjusting
	Done
)

var stateNames = map[State]string{
	Idle:       "idle",
	Preparing:  "preparing",
	Simulating: "simulating",
	Collecting: "collecting",
	Adjusting:  "adjusting",
	Done:       "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal successors of every state. Replayed episodes
// skip Simulating.
var transitions = map[State][]State{
	Idle:       {Preparing, Done},
	Preparing:  {Simulating, Collecting},
	Simulating: {Collecting},
	Collecting: {Adjusting},
	Adjusting:  {Idle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
