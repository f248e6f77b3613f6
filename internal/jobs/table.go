package jobs

import "sync"

// Table is the registry of launched jobs plus the foreground slot.
//
// Entries are kept in insertion order. The table is owned by the shell's main
// goroutine; the mutex keeps it consistent if a caller strays from that.
type Table struct {
	mu         sync.Mutex
	jobs       []*Job
	foreground int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Insert registers a running job under the lowest free job id.
func (t *Table) Insert(pid int, line string, background bool) Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := &Job{
		ID:         t.lowestFreeID(),
		PID:        pid,
		Line:       line,
		State:      Running,
		Background: background,
	}
	t.jobs = append(t.jobs, job)
	return *job
}

// lowestFreeID returns the smallest positive id not held by a live job.
func (t *Table) lowestFreeID() int {
	used := make(map[int]bool, len(t.jobs))
	for _, j := range t.jobs {
		if !j.State.Terminal() {
			used[j.ID] = true
		}
	}
	id := 1
	for used[id] {
		id++
	}
	return id
}

// FindByPID returns the job whose leader is pid.
func (t *Table) FindByPID(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if j := t.byPID(pid); j != nil {
		return *j, true
	}
	return Job{}, false
}

// FindByID returns the live job with the given job id.
func (t *Table) FindByID(id int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		if j.ID == id && !j.State.Terminal() {
			return *j, true
		}
	}
	return Job{}, false
}

// Current returns the most recently inserted active job.
func (t *Table) Current() (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.jobs) - 1; i >= 0; i-- {
		if t.jobs[i].State.Active() {
			return *t.jobs[i], true
		}
	}
	return Job{}, false
}

func (t *Table) byPID(pid int) *Job {
	for _, j := range t.jobs {
		if j.PID == pid {
			return j
		}
	}
	return nil
}

// SetState moves every entry for pid to state and reports whether anything
// changed. Unknown pids and terminal entries are left alone.
func (t *Table) SetState(pid int, state State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	for _, j := range t.jobs {
		if j.PID != pid || j.State.Terminal() || j.State == state {
			continue
		}
		j.State = state
		changed = true
	}
	if changed && state != Running && t.foreground == pid {
		t.foreground = 0
	}
	return changed
}

// SetBackground records whether the job runs in the background. A job moved
// to the background gives up the foreground slot.
func (t *Table) SetBackground(pid int, background bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if j := t.byPID(pid); j != nil {
		j.Background = background
	}
	if background && t.foreground == pid {
		t.foreground = 0
	}
}

// Active lists running and stopped jobs, oldest first.
func (t *Table) Active() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Job
	for _, j := range t.jobs {
		if j.State.Active() {
			out = append(out, *j)
		}
	}
	return out
}

// Foreground returns the pid in the foreground slot, 0 if empty.
func (t *Table) Foreground() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.foreground
}

// SetForeground puts the job led by pid in the foreground slot, replacing any
// previous occupant. The job stops being a background job.
func (t *Table) SetForeground(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.byPID(pid)
	if j == nil || j.State.Terminal() {
		return false
	}
	j.Background = false
	t.foreground = pid
	return true
}

// ClearForeground empties the foreground slot.
func (t *Table) ClearForeground() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.foreground = 0
}

// Unreported marks every terminal job that has not been announced yet as
// reported and returns them in insertion order.
func (t *Table) Unreported() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Job
	for _, j := range t.jobs {
		if j.State.Terminal() && !j.Reported {
			j.Reported = true
			out = append(out, *j)
		}
	}
	return out
}

// Reclaim drops terminal jobs that have been reported.
func (t *Table) Reclaim() {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.jobs[:0]
	for _, j := range t.jobs {
		if j.State.Terminal() && j.Reported {
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(t.jobs); i++ {
		t.jobs[i] = nil
	}
	t.jobs = kept
}

// ReclaimAll drops every entry and clears the foreground slot.
func (t *Table) ReclaimAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = nil
	t.foreground = 0
}

// Len returns the number of entries, terminal ones included.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}
