package trade

// Transition classifies an update by its inventory side effect
type Transition int

const (
	// TransitionNone has no inventory effect
	TransitionNone Transition = iota
	// TransitionConfirmation consumes the stock of every line
	TransitionConfirmation
)

// String returns a label for logs and metrics
func (t Transition) String() string {
	switch t {
	case TransitionConfirmation:
		return "confirmation"
	default:
		return "none"
	}
}

// DetectTransition compares the status read under lock inside the current
// transaction with the one the caller proposes. Only entering Confirmed from
// any other status is a confirmation; Confirmed to Confirmed is not.
func DetectTransition(persisted, proposed OrderStatus) Transition {
	if proposed.IsConfirmed() && !persisted.IsConfirmed() {
		return TransitionConfirmation
	}
	return TransitionNone
}
