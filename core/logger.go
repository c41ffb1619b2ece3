package core

// Logger is implemented by services/logger. Args may carry any extra context;
// implementations decide what to do with a user.User argument (e.g. Rollbar
// person tracking).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
