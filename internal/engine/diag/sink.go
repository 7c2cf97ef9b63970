// Package diag classifies and stores the diagnostic messages of one Build.
package diag

import (
	"errors"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Sink collects the messages of one Build and routes them by severity.
type Sink struct {
	build  string
	logger ports.Logger

	mu       sync.Mutex
	infos    []domain.Message
	warnings []domain.Message
	errors   []domain.Message
	fatal    int
}

// NewSink creates an empty Sink for the named Build.
func NewSink(build string, logger ports.Logger) *Sink {
	return &Sink{build: build, logger: logger}
}

// Build returns the name of the owning Build.
func (s *Sink) Build() string {
	return s.build
}

// Add records msg according to the severity of its code.
//
// Info and warning messages are stored and also copied into the message's
// compilation when it has one. An error scoped to a compilation is stored in
// both places and Add returns nil, so the pipeline keeps going. An error
// without a compilation is stored and returned as a *domain.FatalError.
// Reserved codes are logged and never stored. Unrecognized codes are logged
// as a fallback warning and never stored. Warnings are logged as they arrive;
// infos and errors are traced at debug level until Drain prints them.
func (s *Sink) Add(msg domain.Message) error {
	severity := msg.Severity()
	switch severity {
	case domain.SeverityReserved:
		s.log(func(l ports.Logger) { l.Info(s.line(msg) + " (reserved)") })
		return nil
	case domain.SeverityUnknown:
		fallback := domain.NewMessage(domain.CodeUnrecognizedFallback, "unrecognized message "+msg.String())
		s.log(func(l ports.Logger) { l.Warn(s.line(fallback)) })
		return nil
	case domain.SeverityWarning:
		s.log(func(l ports.Logger) { l.Warn(s.line(msg)) })
	default:
		s.log(func(l ports.Logger) { l.Debug(s.line(msg)) })
	}

	s.mu.Lock()
	switch severity {
	case domain.SeverityInfo:
		s.infos = append(s.infos, msg)
	case domain.SeverityWarning:
		s.warnings = append(s.warnings, msg)
	default:
		s.errors = append(s.errors, msg)
	}
	fatal := severity == domain.SeverityError && msg.Compilation == nil
	if fatal {
		s.fatal++
	}
	s.mu.Unlock()

	if fatal {
		return &domain.FatalError{Build: s.build, Message: msg}
	}
	if msg.Compilation != nil {
		msg.Compilation.AddDiagnostic(msg)
	}
	return nil
}

// HasErrors reports whether any error message was added since the last Drain.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors) > 0
}

// HasFatal reports whether an error without a compilation context was ever added.
func (s *Sink) HasFatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal > 0
}

// Messages returns every stored message in severity order: infos, warnings, errors.
func (s *Sink) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, 0, len(s.infos)+len(s.warnings)+len(s.errors))
	out = append(out, s.infos...)
	out = append(out, s.warnings...)
	return append(out, s.errors...)
}

// Drain prints every stored message in severity order and clears the lists.
func (s *Sink) Drain() {
	s.mu.Lock()
	infos, warnings, errs := s.infos, s.warnings, s.errors
	s.infos, s.warnings, s.errors = nil, nil, nil
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	for _, m := range infos {
		s.logger.Info(s.line(m))
	}
	for _, m := range warnings {
		s.logger.Warn(s.line(m))
	}
	for _, m := range errs {
		s.logger.Error(s.asError(m))
	}
}

func (s *Sink) log(fn func(ports.Logger)) {
	if s.logger != nil {
		fn(s.logger)
	}
}

func (s *Sink) line(msg domain.Message) string {
	return "[" + s.build + "] " + msg.String()
}

func (s *Sink) asError(msg domain.Message) error {
	head := "[" + s.build + "] " + msg.Code.String() + " " + msg.Text
	if msg.Err == nil {
		return errors.New(head)
	}
	return zerr.Wrap(msg.Err, head)
}
