package executor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"jobshell/internal/command"
	"jobshell/internal/jobs"
)

// procGroup tracks the processes of one job until all of them are reaped.
type procGroup struct {
	// pids holds members not reaped yet.
	pids []int
	// last is the final pipeline stage; its status is the job's status.
	last   int
	status unix.WaitStatus
}

// Launch starts the resolved stages as one job in a new process group and
// registers it. A foreground job is waited on before Launch returns.
//
// Stages are connected stdout to stdin. Signals that arrive meanwhile stay
// queued on the signal channel until the job is in the table.
func (e *Executor) Launch(stages ...*command.Command) error {
	if len(stages) == 0 {
		return nil
	}
	first := stages[0]
	background := first.Background

	var (
		started    []*exec.Cmd
		toClose    []*os.File
		prevReader *os.File
		leader     int
	)

	abort := func(err error) error {
		for _, f := range toClose {
			f.Close()
		}
		if prevReader != nil {
			prevReader.Close()
		}
		for _, cmd := range started {
			pid := cmd.Process.Pid
			_ = unix.Kill(pid, unix.SIGKILL)
			_, _ = unix.Wait4(pid, nil, 0, nil)
			_ = cmd.Process.Release()
		}
		return err
	}

	for i, stage := range stages {
		cmd := exec.Command(stage.Path, stage.Args[1:]...)
		cmd.Args[0] = stage.Args[0]

		attr := &syscall.SysProcAttr{Setpgid: true, Pgid: leader}
		if i == 0 && !background && e.tty.enabled {
			attr.Foreground = true
			attr.Ctty = e.tty.fd
		}
		cmd.SysProcAttr = attr

		// stdin; a nil Stdin reads from the null device.
		switch {
		case stage.RedirectIn != "":
			f, err := os.Open(stage.RedirectIn)
			if err != nil {
				return abort(fmt.Errorf("input redirect: %w", err))
			}
			toClose = append(toClose, f)
			cmd.Stdin = f
		case i > 0:
			if prevReader != nil {
				cmd.Stdin = prevReader
			}
		case !background:
			cmd.Stdin = e.stdin
		}

		// stdout
		var pipeReader, pipeWriter *os.File
		switch {
		case stage.RedirectOut != "":
			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if stage.Append {
				flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
			}
			f, err := os.OpenFile(stage.RedirectOut, flags, 0644)
			if err != nil {
				return abort(fmt.Errorf("output redirect: %w", err))
			}
			toClose = append(toClose, f)
			cmd.Stdout = f
		case i < len(stages)-1:
			var err error
			pipeReader, pipeWriter, err = os.Pipe()
			if err != nil {
				return abort(fmt.Errorf("pipe: %w", err))
			}
			cmd.Stdout = pipeWriter
		default:
			cmd.Stdout = e.stdout
		}

		cmd.Stderr = e.stderr

		if err := cmd.Start(); err != nil {
			if pipeWriter != nil {
				pipeWriter.Close()
				pipeReader.Close()
			}
			return abort(err)
		}
		started = append(started, cmd)
		if leader == 0 {
			leader = cmd.Process.Pid
		}

		if pipeWriter != nil {
			pipeWriter.Close()
		}
		if prevReader != nil {
			prevReader.Close()
		}
		prevReader = pipeReader
	}

	for _, f := range toClose {
		f.Close()
	}
	if prevReader != nil {
		prevReader.Close()
	}

	group := &procGroup{}
	for _, cmd := range started {
		group.pids = append(group.pids, cmd.Process.Pid)
		// We reap with wait4 ourselves; the handle is not needed.
		_ = cmd.Process.Release()
	}
	group.last = group.pids[len(group.pids)-1]

	line := first.String()
	job := e.table.Insert(leader, line, background)
	e.procs[leader] = group
	e.log.Printf("job %d started: pgid=%d pids=%v background=%t %q", job.ID, leader, group.pids, background, line)

	if background {
		return nil
	}
	e.runForeground(job)
	return nil
}

// runForeground gives the job the terminal and polls it until it stops or
// ends.
func (e *Executor) runForeground(job jobs.Job) {
	e.acquire(job.PID)
	defer e.release()
	e.wait(job.PID)
}

func (e *Executor) acquire(pid int) {
	e.table.SetForeground(pid)
	e.tty.give(pid)
}

func (e *Executor) release() {
	e.tty.reclaim()
	e.table.ClearForeground()
}
