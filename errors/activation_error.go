package errors

import "strings"

// ActivationError collects the errors raised by plugin hooks during a batch
// activation or deactivation. Processing of the batch continues after each
// error.
type ActivationError struct {
	// ActivateErrors are errors returned or raised by activation hooks
	ActivateErrors []error

	// DeactivateErrors are errors returned or raised by deactivation hooks
	DeactivateErrors []error
}

func NewActivationError() *ActivationError {
	return &ActivationError{
		ActivateErrors:   []error{},
		DeactivateErrors: []error{},
	}
}

// AppendActivateError adds a new activation error
func (a *ActivationError) AppendActivateError(err error) {
	a.ActivateErrors = append(a.ActivateErrors, err)
}

// AppendDeactivateError adds a new deactivation error
func (a *ActivationError) AppendDeactivateError(err error) {
	a.DeactivateErrors = append(a.DeactivateErrors, err)
}

// HasErrors returns true when any error was collected
func (a *ActivationError) HasErrors() bool {
	return len(a.ActivateErrors) > 0 || len(a.DeactivateErrors) > 0
}

// Unwrap returns all collected errors so errors.Is and errors.As can
// inspect them
func (a *ActivationError) Unwrap() []error {
	return append(append([]error{}, a.ActivateErrors...), a.DeactivateErrors...)
}

// ErrorOrNil returns nil when no error was collected
func (a *ActivationError) ErrorOrNil() error {
	if a == nil || !a.HasErrors() {
		return nil
	}

	return a
}

// Error pretty prints the error message as a string
func (a *ActivationError) Error() string {
	err := strings.Builder{}

	for _, e := range a.ActivateErrors {
		err.WriteString(e.Error() + "\n")
	}

	for _, e := range a.DeactivateErrors {
		err.WriteString(e.Error() + "\n")
	}

	return strings.TrimSuffix(err.String(), "\n")
}
