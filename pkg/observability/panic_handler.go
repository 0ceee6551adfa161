package observability

import "runtime/debug"

// RecoverPanic recovers from a panic and logs it with its stack trace. It
// must be deferred directly; the panic is not re-raised.
//
//	defer observability.RecoverPanic(logger, "stats collection")
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", where).
			Error("PANIC recovered")
	}
}
