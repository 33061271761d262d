// Package werr carries the closed failure taxonomy shared by every
// attack stage: a kind tag, a human detail line and, when an external
// tool died, its captured stderr.
package werr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	InterfaceUnavailable Kind = iota
	ModeTransitionFailed
	LockTimeout
	ToolMissing
	ToolStartupFailed
	ProcessTimeout
	CaptureInsufficientData
	CrackNotFound
	InterfaceConflict
)

func (k Kind) String() string {
	switch k {
	case InterfaceUnavailable:
		return "InterfaceUnavailable"
	case ModeTransitionFailed:
		return "ModeTransitionFailed"
	case LockTimeout:
		return "LockTimeout"
	case ToolMissing:
		return "ToolMissing"
	case ToolStartupFailed:
		return "ToolStartupFailed"
	case ProcessTimeout:
		return "ProcessTimeout"
	case CaptureInsufficientData:
		return "CaptureInsufficientData"
	case CrackNotFound:
		return "CrackNotFound"
	case InterfaceConflict:
		return "InterfaceConflict"
	}
	return "Unknown"
}

type Error struct {
	Kind   Kind
	Detail string
	Stderr string
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Detail, e.Stderr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func WithStderr(kind Kind, detail string, stderr string) *Error {
	return &Error{Kind: kind, Detail: detail, Stderr: stderr}
}

// Check if err carries the given kind
func Is(err error, kind Kind) bool {
	var werror *Error
	if errors.As(err, &werror) {
		return werror.Kind == kind
	}
	return false
}
