// Package command holds the descriptor for a single parsed command.
package command

import "strings"

// Command describes one command to run. It is built by the parser, consumed
// once by the executor and released afterwards.
type Command struct {
	// Args holds the argument vector, Args[0] is the program or builtin name.
	Args []string
	// Line is the text shown by the jobs builtin.
	Line string
	// Path is the resolved executable, empty until resolution.
	Path string

	Background bool

	RedirectIn  string
	RedirectOut string
	// Append opens RedirectOut with O_APPEND instead of truncating it.
	Append bool

	released bool
}

// New allocates a descriptor with argc empty argument slots.
func New(argc int) *Command {
	if argc < 0 {
		argc = 0
	}
	return &Command{Args: make([]string, argc)}
}

// Argc returns the number of arguments.
func (c *Command) Argc() int {
	if c == nil {
		return 0
	}
	return len(c.Args)
}

// Name returns Args[0], or "" for an empty command.
func (c *Command) Name() string {
	if c.Argc() == 0 {
		return ""
	}
	return c.Args[0]
}

// Release drops everything the descriptor owns. The descriptor must not be
// run again afterwards.
func (c *Command) Release() {
	if c == nil || c.released {
		return
	}
	c.Args = nil
	c.Line = ""
	c.Path = ""
	c.RedirectIn = ""
	c.RedirectOut = ""
	c.released = true
}

// Released reports whether Release has been called.
func (c *Command) Released() bool {
	return c != nil && c.released
}

func (c *Command) String() string {
	if c == nil {
		return ""
	}
	if c.Line != "" {
		return c.Line
	}
	return strings.Join(c.Args, " ")
}
