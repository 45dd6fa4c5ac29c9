package pipeline

import (
	"time"
)

// State is the position of one invocation in the capture-upload-classify chain.
type State int

const (
	Idle State = iota
	Capturing
	Captured
	Uploading
	Uploaded
	Classifying
	Done
	Failed
)

var stateNames = [...]string{
	Idle:        "idle",
	Capturing:   "capturing",
	Captured:    "captured",
	Uploading:   "uploading",
	Uploaded:    "uploaded",
	Classifying: "classifying",
	Done:        "done",
	Failed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText lets states appear by name in JSON events.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

var transitions = map[State][]State{
	Idle:        {Capturing},
	Capturing:   {Captured, Failed},
	Captured:    {Uploading},
	Uploading:   {Uploaded, Failed},
	Uploaded:    {Classifying},
	Classifying: {Done, Failed},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Event describes one state change of an invocation.
type Event struct {
	Invocation string    `json:"invocation"`
	From       State     `json:"from"`
	To         State     `json:"to"`
	Err        error     `json:"-"`
	At         time.Time `json:"at"`
}

// Observer receives every state change synchronously, in order.
type Observer func(Event)
