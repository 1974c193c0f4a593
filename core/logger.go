package core

// Logger is the application-wide structured logger.
// Implementations may forward entries to an error-reporting service;
// extra args are attached to the entry as-is.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
