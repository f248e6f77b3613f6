package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"jobshell/internal/executor"
	"jobshell/internal/parser"
)

const DefaultPrompt = "jobshell> "

// Options configures a Shell.
type Options struct {
	Executor *executor.Executor

	// Signals must be the channel the executor drains.
	Signals <-chan os.Signal

	In  io.Reader
	Out io.Writer

	Prompt string
	// Color controls prompt coloring: "always", "never" or "auto".
	Color string
	// Interactive shows a prompt before each line.
	Interactive bool

	Logger *log.Logger
}

// Shell reads command lines and hands them to the executor.
type Shell struct {
	exec    *executor.Executor
	signals <-chan os.Signal
	in      io.Reader
	out     io.Writer

	prompt      string
	promptColor *color.Color
	interactive bool
	log         *log.Logger
}

func New(opts Options) *Shell {
	s := &Shell{
		exec:        opts.Executor,
		signals:     opts.Signals,
		in:          opts.In,
		out:         opts.Out,
		prompt:      opts.Prompt,
		promptColor: color.New(color.FgGreen, color.Bold),
		interactive: opts.Interactive,
		log:         opts.Logger,
	}
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.prompt == "" {
		s.prompt = DefaultPrompt
	}
	if s.log == nil {
		s.log = log.New(io.Discard, "", 0)
	}
	switch opts.Color {
	case "always":
		s.promptColor.EnableColor()
	case "never":
		s.promptColor.DisableColor()
	}
	return s
}

type readResult struct {
	line string
	err  error
}

// lineReader reads one line for every request. Reading only on demand keeps
// the shell off the terminal while a foreground job owns it.
func (s *Shell) lineReader() (chan<- struct{}, <-chan readResult) {
	requests := make(chan struct{})
	results := make(chan readResult, 1)
	br := bufio.NewReader(s.in)

	go func() {
		for range requests {
			line, err := br.ReadString('\n')
			results <- readResult{line, err}
			if err != nil {
				return
			}
		}
	}()
	return requests, results
}

// Run reads and executes lines until end of input, the exit builtin or ctx
// is cancelled. It returns the shell's exit status.
func (s *Shell) Run(ctx context.Context) int {
	requests, results := s.lineReader()
	defer close(requests)
	defer s.exec.Shutdown()

	for {
		s.exec.SweepCompleted()
		if exit, code := s.exec.ExitRequested(); exit {
			return code
		}

		s.showPrompt()
		requests <- struct{}{}

		var res readResult
	waiting:
		for {
			select {
			case <-ctx.Done():
				s.log.Printf("session cancelled: %v", ctx.Err())
				return s.exec.Status()
			case sig := <-s.signals:
				if s.idleSignal(sig) {
					s.showPrompt()
				}
			case res = <-results:
				break waiting
			}
		}

		if res.line != "" {
			s.RunLine(res.line)
		}
		if res.err != nil {
			if !errors.Is(res.err, io.EOF) {
				fmt.Fprintf(s.out, "jobshell: %v\n", res.err)
			}
			if exit, code := s.exec.ExitRequested(); exit {
				return code
			}
			if s.interactive {
				fmt.Fprintln(s.out)
			}
			return s.exec.Status()
		}
	}
}

// idleSignal handles a signal that arrives while the shell waits for input
// and reports whether the prompt needs redrawing.
func (s *Shell) idleSignal(sig os.Signal) bool {
	switch sig {
	case unix.SIGINT:
		fmt.Fprintln(s.out)
		return true
	case unix.SIGCHLD:
		for _, job := range s.exec.SweepCompleted() {
			if executor.Announced(job) {
				return true
			}
		}
	}
	return false
}

// RunCommand executes a single line without reading input and returns the
// resulting status.
func (s *Shell) RunCommand(line string) int {
	defer s.exec.Shutdown()

	s.RunLine(line)
	s.exec.SweepCompleted()
	if exit, code := s.exec.ExitRequested(); exit {
		return code
	}
	return s.exec.Status()
}

// RunLine parses and executes one command line.
func (s *Shell) RunLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	cmds, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.out, "jobshell: %v\n", err)
		return
	}
	s.exec.Run(cmds)
}

func (s *Shell) showPrompt() {
	if !s.interactive {
		return
	}
	s.promptColor.Fprint(s.out, s.prompt)
}
