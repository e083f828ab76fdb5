// Package model provides core abstractions shared by bloomcast estimators.
//
// Every transform and classifier in the pipeline tracks a fitted/unfitted
// state so that Transform or Predict on an untrained component fails loudly
// instead of producing garbage. Components either embed BaseEstimator or
// compose a StateManager, mirroring the two styles used across the codebase.
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is the base structure embedded by transforms.
type BaseEstimator struct {
	// State holds the model's learning state. Public for gob encoding.
	State EstimatorState

	// hyperparameters holds the model's hyperparameters
	hyperparameters map[string]interface{}
}

// IsFitted returns whether the estimator has been fitted with training data.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Called by implementations at the
// end of a successful Fit; not by end users.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// GetParams retrieves the estimator's hyperparameters.
func (e *BaseEstimator) GetParams(deep bool) map[string]interface{} {
	if e.hyperparameters == nil {
		return make(map[string]interface{})
	}

	if !deep {
		return e.hyperparameters
	}

	params := make(map[string]interface{})
	for k, v := range e.hyperparameters {
		params[k] = v
	}
	return params
}

// SetParams sets the estimator's hyperparameters.
func (e *BaseEstimator) SetParams(params map[string]interface{}) error {
	if e.hyperparameters == nil {
		e.hyperparameters = make(map[string]interface{})
	}

	for k, v := range params {
		e.hyperparameters[k] = v
	}

	return nil
}
