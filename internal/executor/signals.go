package executor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"jobshell/internal/jobs"
)

// Signals lists the signals the shell loop should subscribe to.
var Signals = []os.Signal{unix.SIGINT, unix.SIGTSTP, unix.SIGCHLD}

// HandleSignal routes one queued signal to its handler.
func (e *Executor) HandleSignal(sig os.Signal) {
	switch sig {
	case unix.SIGTSTP:
		e.NotifyStop()
	case unix.SIGINT:
		e.NotifyInterrupt()
	case unix.SIGCHLD:
		e.SweepCompleted()
	}
}

// NotifyStop stops the whole foreground process group.
func (e *Executor) NotifyStop() {
	pid := e.table.Foreground()
	if pid == 0 {
		return
	}
	if err := unix.Kill(-pid, unix.SIGTSTP); err != nil {
		fmt.Fprintln(e.out, "Error in kill")
		e.log.Printf("stop pgid=%d: %v", pid, err)
		return
	}

	fmt.Fprintln(e.out)
	if e.table.SetState(pid, jobs.Stopped) {
		e.status = 128 + int(unix.SIGTSTP)
	}
	if job, ok := e.table.FindByPID(pid); ok {
		fmt.Fprintln(e.out, job)
	}
}

// NotifyInterrupt interrupts the foreground job and marks it terminated.
func (e *Executor) NotifyInterrupt() {
	pid := e.table.Foreground()
	if pid == 0 {
		return
	}
	if err := unix.Kill(-pid, unix.SIGINT); err != nil {
		fmt.Fprintln(e.out, "kill error")
		e.log.Printf("interrupt pgid=%d: %v", pid, err)
		return
	}
	if e.table.SetState(pid, jobs.Terminated) {
		e.status = 128 + int(unix.SIGINT)
	}
}

// SweepCompleted reaps every tracked process that changed state, announces
// stopped jobs, finished background jobs and terminated foreground jobs, and
// drops finished jobs from the table. It returns the jobs that reached a
// terminal state since the previous sweep; each job is returned exactly once.
func (e *Executor) SweepCompleted() []jobs.Job {
	fg := e.table.Foreground()
	for leader := range e.procs {
		job, changed := e.poll(leader)
		if !changed || job.State != jobs.Stopped {
			continue
		}
		if leader == fg {
			fmt.Fprintln(e.out)
		}
		fmt.Fprintln(e.out, job)
	}

	reported := e.table.Unreported()
	for _, job := range reported {
		if Announced(job) {
			fmt.Fprintln(e.out, job)
		}
	}
	e.table.Reclaim()
	return reported
}

// Announced reports whether the sweep prints a finished job. A foreground job
// that exited normally ends silently.
func Announced(job jobs.Job) bool {
	return job.Background || job.State == jobs.Terminated
}

// Continue resumes the job led by pid. In the foreground it takes the
// terminal and is waited on like a freshly launched job.
func (e *Executor) Continue(pid int, foreground bool) error {
	job, ok := e.table.FindByPID(pid)
	if !ok || job.State.Terminal() {
		return jobs.ErrNoSuchJob
	}

	if foreground {
		e.acquire(pid)
		defer e.release()
	} else {
		e.table.SetBackground(pid, true)
	}

	if err := unix.Kill(-pid, unix.SIGCONT); err != nil {
		return fmt.Errorf("resume job %d: %w", job.ID, err)
	}
	e.table.SetState(pid, jobs.Running)
	e.log.Printf("job %d continued: pgid=%d foreground=%t", job.ID, pid, foreground)

	if foreground {
		e.wait(pid)
	}
	return nil
}
