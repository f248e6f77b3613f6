// Package executor launches commands as jobs and keeps the job table in step
// with what the processes actually do.
//
// Everything here runs on the goroutine that owns the shell loop. Signals are
// never handled asynchronously: os/signal queues them on a channel and the
// executor drains it between prompts and while it polls a foreground job.
package executor

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"jobshell/internal/builtins"
	"jobshell/internal/command"
	"jobshell/internal/jobs"
	"jobshell/internal/resolver"
)

// DefaultPollInterval is how often a foreground job is polled.
const DefaultPollInterval = 10 * time.Millisecond

// Options configures an Executor. Zero values fall back to the process's
// standard streams and a host resolver.
type Options struct {
	Resolver *resolver.Resolver

	// Out receives diagnostics and job notifications.
	Out io.Writer

	// Stdio handed to children.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Signals is drained while waiting on foreground jobs.
	Signals <-chan os.Signal

	PollInterval time.Duration

	// JobControl hands the terminal on Stdin to foreground jobs.
	JobControl bool

	Logger *log.Logger
}

// Executor runs commands and owns the job table.
type Executor struct {
	table    *jobs.Table
	resolver *resolver.Resolver
	out      io.Writer

	stdin, stdout, stderr *os.File

	signals      <-chan os.Signal
	pollInterval time.Duration
	tty          *terminal
	log          *log.Logger

	// procs holds the unreaped member pids of every job, keyed by leader.
	procs map[int]*procGroup

	status       int
	exitCode     int
	exitRequired bool
}

var _ builtins.Shell = (*Executor)(nil)

// New creates an executor with an empty job table.
func New(opts Options) *Executor {
	e := &Executor{
		table:        jobs.NewTable(),
		resolver:     opts.Resolver,
		out:          opts.Out,
		stdin:        opts.Stdin,
		stdout:       opts.Stdout,
		stderr:       opts.Stderr,
		signals:      opts.Signals,
		pollInterval: opts.PollInterval,
		log:          opts.Logger,
		procs:        make(map[int]*procGroup),
	}
	if e.resolver == nil {
		e.resolver = resolver.New()
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.stdin == nil {
		e.stdin = os.Stdin
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	e.tty = newTerminal(e.stdin, opts.JobControl)
	return e
}

// Jobs returns the job table.
func (e *Executor) Jobs() *jobs.Table {
	return e.table
}

// Output returns the writer for diagnostics.
func (e *Executor) Output() io.Writer {
	return e.out
}

// Status returns the exit status of the last foreground command.
func (e *Executor) Status() int {
	return e.status
}

// Exit asks the shell loop to stop after the current command.
func (e *Executor) Exit(code int) {
	e.exitRequired = true
	e.exitCode = code
}

// ExitRequested reports whether exit was called and with which status.
func (e *Executor) ExitRequested() (bool, int) {
	return e.exitRequired, e.exitCode
}

// Shutdown forgets every job. Running children are left alone.
func (e *Executor) Shutdown() {
	e.table.ReclaimAll()
	e.procs = make(map[int]*procGroup)
}

// Run executes one parsed command line. A single command may be a builtin;
// several commands form a pipeline. The descriptors are released afterwards.
func (e *Executor) Run(cmds []*command.Command) {
	defer func() {
		for _, cmd := range cmds {
			cmd.Release()
		}
	}()

	switch len(cmds) {
	case 0:
		return
	case 1:
		e.runCmd(cmds[0])
	default:
		e.runPipeline(cmds)
	}
}

func (e *Executor) runCmd(cmd *command.Command) {
	if cmd.Argc() <= 0 {
		return
	}
	if builtins.IsBuiltin(cmd.Name()) && (cmd.RedirectIn != "" || cmd.RedirectOut != "") {
		fmt.Fprintf(e.out, "%s: builtin does not support redirection\n", cmd.Name())
		e.status = 1
		return
	}
	if handled, status := builtins.Handle(e, cmd.Args); handled {
		e.status = status
		return
	}
	if !e.resolve(cmd) {
		return
	}
	if err := e.Launch(cmd); err != nil {
		fmt.Fprintf(e.out, "%s: %v\n", cmd.Name(), err)
		e.status = 126
	}
}

func (e *Executor) runPipeline(cmds []*command.Command) {
	for _, cmd := range cmds {
		if cmd.Argc() <= 0 {
			fmt.Fprintln(e.out, "syntax error: empty pipeline stage")
			e.status = 2
			return
		}
		if builtins.IsBuiltin(cmd.Name()) {
			fmt.Fprintf(e.out, "%s: builtin cannot be used in a pipeline\n", cmd.Name())
			e.status = 1
			return
		}
		if !e.resolve(cmd) {
			return
		}
	}
	if err := e.Launch(cmds...); err != nil {
		fmt.Fprintf(e.out, "%s: %v\n", cmds[0].Name(), err)
		e.status = 126
	}
}

// resolve fills in cmd.Path, reporting a miss to the user.
func (e *Executor) resolve(cmd *command.Command) bool {
	path, err := e.resolver.Resolve(cmd.Name())
	if err != nil {
		fmt.Fprintf(e.out, "%s: command not found\n", cmd.Name())
		e.log.Printf("resolve %q: %v", cmd.Name(), err)
		e.status = 127
		return false
	}
	cmd.Path = path
	return true
}
