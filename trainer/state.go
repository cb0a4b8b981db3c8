package trainer

// State is the progress of a training run. States advance strictly in order;
// a failure leaves the run in the last state it reached.
type State int

const (
	StateStart State = iota
	StateConfigResolved
	StateDataLoaded
	StateFitted
	StatePersisted
	StateExported
	StateDone
)

var stateNames = [...]string{
	StateStart:          "START",
	StateConfigResolved: "CONFIG_RESOLVED",
	StateDataLoaded:     "DATA_LOADED",
	StateFitted:         "FITTED",
	StatePersisted:      "PERSISTED",
	StateExported:       "EXPORTED",
	StateDone:           "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
