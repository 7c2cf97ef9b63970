package domain

import (
	"fmt"
	"strings"
)

// Severity is the class of a message, derived from the leading digit of its code.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityReserved
	SeverityUnknown
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Code is a three-digit message code. Its leading digit selects the severity:
// 0-2 info, 3-5 warning, 6-8 error, 9 reserved.
type Code uint16

// Info codes.
const (
	CodeBuildStarted      Code = 1
	CodeBuildCompleted    Code = 2
	CodeWaitResolved      Code = 10
	CodeWaitAlreadyDone   Code = 11
	CodeCacheHit          Code = 20
	CodeCacheMiss         Code = 21
	CodeAutoInjected      Code = 101
	CodeStageTimed        Code = 110
	CodeAssetsEmitted     Code = 120
	CodeCompilationReport Code = 201
)

// Warning codes.
const (
	CodeWaitTimeout          Code = 301
	CodeSnapshotFailed       Code = 310
	CodeSnapshotCheckFailed  Code = 311
	CodeCachePersistFailed   Code = 312
	CodeDependencyNotFound   Code = 320
	CodeStageNonFatal        Code = 501
	CodeUnrecognizedFallback Code = 599
)

// Error codes.
const (
	CodeHandlerFailed Code = 602
	CodeAssetFailed   Code = 610
	CodeScriptFailed  Code = 620
	CodeEmitFailed    Code = 630
)

// CodeReserved is the reserved range marker.
const CodeReserved Code = 900

// Severity classifies the code by its leading digit.
func (c Code) Severity() Severity {
	if c >= 1000 {
		return SeverityUnknown
	}
	switch lead := c / 100; {
	case lead <= 2:
		return SeverityInfo
	case lead <= 5:
		return SeverityWarning
	case lead <= 8:
		return SeverityError
	default:
		return SeverityReserved
	}
}

// String renders the code in its padded form, e.g. "K0301".
func (c Code) String() string {
	return fmt.Sprintf("K%04d", uint16(c))
}

// Message is a diagnostic event produced while a Build runs.
type Message struct {
	Code        Code
	Text        string
	Compilation *Compilation
	Err         error
}

// NewMessage creates a message with the given code and text.
func NewMessage(code Code, text string) Message {
	return Message{Code: code, Text: text}
}

// In returns a copy of the message scoped to the given compilation.
func (m Message) In(c *Compilation) Message {
	m.Compilation = c
	return m
}

// Because returns a copy of the message carrying the given cause.
func (m Message) Because(err error) Message {
	m.Err = err
	return m
}

// Severity returns the severity of the message code.
func (m Message) Severity() Severity {
	return m.Code.Severity()
}

// String renders the message as a single log line.
func (m Message) String() string {
	var sb strings.Builder
	sb.WriteString(m.Code.String())
	sb.WriteString(" ")
	sb.WriteString(m.Text)
	if m.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(m.Err.Error())
	}
	return sb.String()
}

// FatalError is returned when an error message without a compilation context is added.
// It aborts the current stage of the owning Build.
type FatalError struct {
	Build   string
	Message Message
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("build %s: %s", e.Build, e.Message.String())
}

// Unwrap returns the message cause.
func (e *FatalError) Unwrap() error {
	return e.Message.Err
}
