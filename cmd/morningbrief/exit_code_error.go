package main

// ExitCodeError wraps an error with a specific process exit code.
//
// Most commands return plain errors and exit with code 1. Configuration
// problems exit with 2 and stage failures with 3 so cron wrappers can tell
// them apart.
type ExitCodeError struct {
	Code int
	Err  error
}

const (
	exitConfig = 2
	exitStage  = 3
)

func (e *ExitCodeError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
