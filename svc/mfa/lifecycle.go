package mfa

// transitions is the closed set of allowed status changes.
var transitions = map[FactorStatus][]FactorStatus{
	StatusPending:  {StatusActive, StatusDeleted},
	StatusActive:   {StatusDisabled, StatusDeleted},
	StatusDisabled: {StatusDeleted},
}

// CanTransition reports whether a factor may move from one status to another.
func CanTransition(from, to FactorStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to FactorStatus) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}
