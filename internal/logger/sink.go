package logger

// Logger is the write-only sink handed to the supervision core. Supervisors
// only ever emit messages through it, nothing reads back, so tests can swap
// in a recording implementation.
type Logger interface {
	Info(message string)
	Debug(message string)
	Error(message string)
}

type defaultSink struct{}

func (defaultSink) Info(message string)  { Info(message) }
func (defaultSink) Debug(message string) { Debug(message) }
func (defaultSink) Error(message string) { Error(message) }

// Default returns a Logger backed by the package-level leveled loggers.
func Default() Logger {
	return defaultSink{}
}
