package ports

// Logger defines the interface for logging.
//
//go:generate mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Info logs an informational message.
	Info(msg string)
	// Warn logs a warning message.
	Warn(msg string)
	// Success logs the successful end of an operation.
	Success(msg string)
	// Debug logs a message only shown in debug mode.
	Debug(msg string)
	// Error logs an error with its cause chain.
	Error(err error)
}
