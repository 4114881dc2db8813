package pledge

// State is a step of one submission run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateCheckingExisting
	StateReusingExisting
	StateCreating
	StateLinkingReferral
	StateDone
	StateErrored
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateValidating:       "validating",
	StateCheckingExisting: "checking_existing",
	StateReusingExisting:  "reusing_existing",
	StateCreating:         "creating",
	StateLinkingReferral:  "linking_referral",
	StateDone:             "done",
	StateErrored:          "errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeAlreadyPledged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyPledged:
		return "already_pledged"
	default:
		return "unknown"
	}
}
