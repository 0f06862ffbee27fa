package rcp

import "time"

// Logger is the narrow debug-logging capability a Session accepts. It is
// satisfied by internal/rcplog.PtermLogger and internal/rcplog.Noop(),
// or by any caller-supplied type with the same method set — this
// package never imports a concrete logging library itself.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Options bundles the per-session timeout parameters, plus the injected
// Logger. NewSession replaces any zero or negative timeout and a nil
// Logger with the DefaultOptions value, so a zero Options yields the
// defaults.
type Options struct {
	// TimeoutTotal governs session liveness and reservation patience.
	TimeoutTotal time.Duration

	// TimeoutShort governs resend and keepalive cadence.
	TimeoutShort time.Duration

	// Logger receives debug/warn/error diagnostics from the engine. A nil
	// Logger is replaced by a no-op implementation.
	Logger Logger
}

// DefaultOptions returns the default timeouts (5000ms total, 200ms
// short) and a no-op logger.
func DefaultOptions() Options {
	return Options{
		TimeoutTotal: DefaultTimeoutTotal,
		TimeoutShort: DefaultTimeoutShort,
		Logger:       noopLogger{},
	}
}

func (o Options) withDefaults() Options {
	if o.TimeoutTotal <= 0 {
		o.TimeoutTotal = DefaultTimeoutTotal
	}
	if o.TimeoutShort <= 0 {
		o.TimeoutShort = DefaultTimeoutShort
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	return o
}
