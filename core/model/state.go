package model

// StateManager tracks fitted state for estimators that prefer composition
// over embedding BaseEstimator.
type StateManager struct {
	state EstimatorState
}

// NewStateManager creates a StateManager in the NotFitted state.
func NewStateManager() *StateManager {
	return &StateManager{state: NotFitted}
}

// IsFitted returns whether SetFitted has been called.
func (s *StateManager) IsFitted() bool {
	return s.state == Fitted
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.state = Fitted
}

// Reset returns the estimator to the NotFitted state.
func (s *StateManager) Reset() {
	s.state = NotFitted
}
