package executor

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// terminal hands the controlling terminal back and forth between the shell
// and its foreground jobs.
type terminal struct {
	fd      int
	enabled bool
	// pgrp is the shell's own process group.
	pgrp int
}

// newTerminal enables hand-off only when f is a terminal whose foreground
// process group is the shell's.
func newTerminal(f *os.File, enabled bool) *terminal {
	t := &terminal{fd: int(f.Fd())}
	if !enabled || !term.IsTerminal(t.fd) {
		return t
	}
	pgrp, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
	if err != nil || pgrp != unix.Getpgrp() {
		return t
	}
	t.pgrp = pgrp
	t.enabled = true
	return t
}

func (t *terminal) give(pgid int) {
	if !t.enabled {
		return
	}
	_ = unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// reclaim makes the shell the foreground process group again. The shell is
// in the background at that point, so SIGTTOU must be ignored for the call.
func (t *terminal) reclaim() {
	if !t.enabled {
		return
	}
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)
	_ = unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, t.pgrp)
}
