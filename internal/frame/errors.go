package frame

import "fmt"

// InputError reports malformed or unusable input data: a non-2-D array, an
// empty image, an unreadable file. It is surfaced immediately and never
// retried.
type InputError struct {
	Op     string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Op, e.Reason)
}

// Inputf builds an InputError with a formatted reason.
func Inputf(op, format string, args ...any) *InputError {
	return &InputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ConfigError reports an out-of-range or inconsistent parameter. Validation
// runs before any processing starts, so a ConfigError always precedes work.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// Configf builds a ConfigError with a formatted reason.
func Configf(param, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, Reason: fmt.Sprintf(format, args...)}
}
