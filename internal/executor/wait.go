package executor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"jobshell/internal/jobs"
)

// wait polls the foreground job without blocking until it leaves the Running
// state, servicing queued signals between polls.
func (e *Executor) wait(leader int) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		if job, ok := e.table.FindByPID(leader); !ok || job.State != jobs.Running {
			// A stop or interrupt handler got there first.
			return
		}

		job, changed := e.poll(leader)
		if changed {
			if job.State == jobs.Stopped {
				fmt.Fprintln(e.out)
				fmt.Fprintln(e.out, job)
			}
			return
		}

		select {
		case sig := <-e.signals:
			e.HandleSignal(sig)
		case <-ticker.C:
		}
	}
}

// poll reaps whatever members of the job have changed state and applies the
// outcome to the table. It reports the job as it stands afterwards and
// whether its state changed.
func (e *Executor) poll(leader int) (jobs.Job, bool) {
	group, ok := e.procs[leader]
	if !ok {
		job, _ := e.table.FindByPID(leader)
		return job, false
	}

	stopped, finished := e.reap(group)
	if finished {
		delete(e.procs, leader)
	}

	wasForeground := leader == e.table.Foreground()
	changed := false
	switch {
	case finished:
		state := jobs.Done
		if group.status.Signaled() {
			state = jobs.Terminated
		}
		changed = e.table.SetState(leader, state)
		if wasForeground {
			e.status = exitStatus(group.status)
		}
		e.log.Printf("job pgid=%d finished: %s", leader, describe(group.status))
	case stopped:
		changed = e.table.SetState(leader, jobs.Stopped)
		if changed && wasForeground {
			e.status = 128 + int(unix.SIGTSTP)
		}
		if changed {
			e.log.Printf("job pgid=%d stopped", leader)
		}
	}

	job, _ := e.table.FindByPID(leader)
	return job, changed
}

// reap collects status changes of the group's members with WNOHANG. A member
// that is no longer our child counts as reaped.
func (e *Executor) reap(group *procGroup) (stopped, finished bool) {
	kept := group.pids[:0]
	for _, pid := range group.pids {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			kept = append(kept, pid)
		case err != nil:
			e.log.Printf("wait4 pid=%d: %v", pid, err)
		case wpid == 0:
			kept = append(kept, pid)
		case ws.Stopped():
			stopped = true
			kept = append(kept, pid)
		default:
			if pid == group.last {
				group.status = ws
			}
		}
	}
	group.pids = kept
	return stopped, len(kept) == 0
}

func exitStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 0
	}
}

func describe(ws unix.WaitStatus) string {
	switch {
	case ws.Exited():
		return fmt.Sprintf("exit status %d", ws.ExitStatus())
	case ws.Signaled():
		return fmt.Sprintf("signal %v", ws.Signal())
	default:
		return "no status"
	}
}
