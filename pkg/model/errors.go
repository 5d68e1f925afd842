package model

import "errors"

// Pipeline error taxonomy. All are returned synchronously by the call that
// violates the precondition and can be matched with errors.Is.
var (
	ErrEmptyInput         = errors.New("no sales records")
	ErrInsufficientData   = errors.New("not enough years for sequence length and horizon")
	ErrEmptySplit         = errors.New("training partition is empty")
	ErrModelNotBuilt      = errors.New("model not built")
	ErrModelNotTrained    = errors.New("model not trained")
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrTrainingCancelled  = errors.New("training cancelled")
)
