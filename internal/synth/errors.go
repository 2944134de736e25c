package synth

import "fmt"

// ConfigError reports a configuration request that cannot be built: an
// unsupported variant or compiler family, a missing MPI-2 library, a version
// below its minimum, or an invalid library selection. It is never retried.
type ConfigError struct {
	// Step is the pipeline step that rejected the request.
	Step string
	// Fact is the input that triggered the failure, e.g. "IntegralLib=3.0".
	Fact string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("synth: %s: %s", e.Step, e.Msg)
	if e.Fact != "" {
		msg += fmt.Sprintf(" (%s)", e.Fact)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(step, fact, format string, args ...any) *ConfigError {
	return &ConfigError{Step: step, Fact: fact, Msg: fmt.Sprintf(format, args...)}
}
