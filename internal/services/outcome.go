package services

import (
	"errors"
	"fmt"
)

// Outcome is the (success, message) pair shown to an operator.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OutcomeOf turns an operation result into an Outcome. Integrity failures are
// prefixed so they stand apart from ordinary user errors.
func OutcomeOf(message string, err error) Outcome {
	if err == nil {
		return Outcome{Success: true, Message: message}
	}
	if errors.Is(err, ErrInconsistentState) {
		return Outcome{Message: fmt.Sprintf("DATA INTEGRITY ERROR: %v", err)}
	}
	return Outcome{Message: fmt.Sprintf("Error: %v", err)}
}
