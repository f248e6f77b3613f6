// Package jobs implements the shell's job table.
package jobs

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchJob    = errors.New("no such job")
	ErrNoCurrentJob = errors.New("no current job")
)

// State is the life-cycle state of a job.
type State int

const (
	Running State = iota
	Stopped
	Done
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Done || s == Terminated
}

// Active reports whether the job is shown by the jobs builtin.
func (s State) Active() bool {
	return s == Running || s == Stopped
}

// Job is a tracked process group launched by the shell.
type Job struct {
	ID   int
	PID  int
	Line string

	State      State
	Background bool

	// Reported is set once the terminal state has been announced.
	Reported bool
}

// String formats the job the way the jobs builtin prints it.
func (j Job) String() string {
	suffix := ""
	if j.Background && j.State == Running {
		suffix = "&"
	}
	return fmt.Sprintf("[%d]   %s                   %s%s", j.ID, j.State, j.Line, suffix)
}
