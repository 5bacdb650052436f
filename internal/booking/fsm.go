// Package booking implements the booking wizard: a step machine that owns the
// draft, the slot list of the selected day and the final submission.
package booking

// Step is the current position of the wizard.
type Step string

const (
	StepSelectSauna    Step = "select_sauna"
	StepSelectDateTime Step = "select_datetime"
	StepEnterInfo      Step = "enter_info"
	StepConfirm        Step = "confirm"
	StepSubmitted      Step = "submitted"
	StepFailed         Step = "failed"
)

// FSM holds the allowed step transitions.
type FSM struct {
	transitions map[Step][]Step
}

// NewFSM creates the wizard transition table. Forward edges are guarded by
// the wizard; back edges go to the immediately preceding step only.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Step][]Step{
			StepSelectSauna:    {StepSelectDateTime},
			StepSelectDateTime: {StepEnterInfo, StepSelectSauna},
			StepEnterInfo:      {StepConfirm, StepSelectDateTime, StepSelectSauna},
			StepConfirm:        {StepSubmitted, StepFailed, StepEnterInfo, StepSelectSauna},
			StepFailed:         {StepSubmitted, StepFailed, StepConfirm, StepEnterInfo, StepSelectSauna},
			StepSubmitted:      {StepSelectSauna, StepSelectDateTime},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to Step) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Previous returns the step Back leads to.
func Previous(s Step) (Step, bool) {
	switch s {
	case StepSelectDateTime:
		return StepSelectSauna, true
	case StepEnterInfo:
		return StepSelectDateTime, true
	case StepConfirm, StepFailed:
		return StepEnterInfo, true
	default:
		return "", false
	}
}

// StepPrompts are shown when a step is entered.
var StepPrompts = map[Step]string{
	StepSelectSauna:    "Choose a sauna:",
	StepSelectDateTime: "Pick a date, then tap the first and the last hour of your visit.",
	StepEnterInfo:      "Enter your contact details.",
	StepConfirm:        "Check your booking and confirm.",
	StepSubmitted:      "✅ Booking created!",
	StepFailed:         "❌ Booking failed. You can retry or go back and change the details.",
}
