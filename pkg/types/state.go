package types

// RunState is a phase of the run controller. Transitions are strictly
// Setup -> Ramping -> Draining -> Teardown -> Reported, or Setup -> Aborted.
type RunState string

const (
	RunStateSetup    RunState = "setup"
	RunStateRamping  RunState = "ramping"
	RunStateDraining RunState = "draining"
	RunStateTeardown RunState = "teardown"
	RunStateReported RunState = "reported"
	// RunStateAborted is terminal: the setup health probe failed and no load was generated.
	RunStateAborted RunState = "aborted"
)

// VUState is the lifecycle of a single virtual user.
type VUState int32

const (
	VUIdle VUState = iota
	VURunning
	VUDraining
	VUStopped
)

func (s VUState) String() string {
	switch s {
	case VUIdle:
		return "idle"
	case VURunning:
		return "running"
	case VUDraining:
		return "draining"
	case VUStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
