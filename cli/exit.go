package cli

import "fmt"

// ExitError carries a process exit code out of a subcommand's RunE so
// main can distinguish invalid expressions (exitInvalid) from runtime
// and configuration failures.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError builds an ExitError with a formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
