package generator

import (
	"errors"
	"fmt"
)

// Level grades a Diagnostic.
type Level uint8

const (
	// LevelWarn is recoverable: the current attempt is abandoned and
	// generation restarts from scratch.
	LevelWarn Level = iota
	// LevelError is terminal for one Generate call.
	LevelError
	// LevelBug means an internal invariant broke.
	LevelBug
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelBug:
		return "bug"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// Diagnostic is the only error type Generate returns.
type Diagnostic struct {
	Level   Level
	Message string
	Detail  string
	// Attempts is the number of attempts made before giving up.
	Attempts int
	err      error
}

func (d *Diagnostic) Error() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s: %s", d.Level, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Level, d.Message, d.Detail)
}

func (d *Diagnostic) Unwrap() error { return d.err }

var (
	// ErrNoVariable is wrapped by recoverable diagnostics raised when no
	// variable of the requested kind is in scope.
	ErrNoVariable = errors.New("no variable of the requested kind in scope")

	// ErrRetryLimit is wrapped by the fatal diagnostic returned once every
	// attempt failed.
	ErrRetryLimit = errors.New("retry limit exceeded")
)

func recoverable(err error, detail string) *Diagnostic {
	return &Diagnostic{Level: LevelWarn, Message: err.Error(), Detail: detail, err: err}
}

func fatal(err error, detail string) *Diagnostic {
	return &Diagnostic{Level: LevelError, Message: err.Error(), Detail: detail, err: err}
}

func bug(err error, detail string) *Diagnostic {
	return &Diagnostic{Level: LevelBug, Message: err.Error(), Detail: detail, err: err}
}

// IsRecoverable reports whether err is a warn-level diagnostic.
func IsRecoverable(err error) bool {
	var d *Diagnostic
	return errors.As(err, &d) && d.Level == LevelWarn
}

// IsBug reports whether err is a bug-level diagnostic.
func IsBug(err error) bool {
	var d *Diagnostic
	return errors.As(err, &d) && d.Level == LevelBug
}
