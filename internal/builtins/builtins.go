package builtins

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"jobshell/internal/jobs"
)

// Shell is the part of the executor the builtins drive.
type Shell interface {
	Jobs() *jobs.Table
	Output() io.Writer
	// Continue sends SIGCONT to the job led by pid. With foreground set the
	// job takes over the terminal and Continue returns once it stops or ends.
	Continue(pid int, foreground bool) error
	Exit(code int)
}

// Builtin is a command interpreted by the shell itself.
type Builtin interface {
	Main(sh Shell, args []string) int
}

type BuiltinFunc func(sh Shell, args []string) int

func (f BuiltinFunc) Main(sh Shell, args []string) int {
	return f(sh, args)
}

var _ Builtin = (BuiltinFunc)(nil)

// All holds every registered builtin by name.
var All = make(map[string]Builtin)

// IsBuiltin reports whether name is run by the shell instead of exec'd.
func IsBuiltin(name string) bool {
	_, ok := All[name]
	return ok
}

// Handle runs args as a builtin. It reports false when args[0] is not one.
func Handle(sh Shell, args []string) (bool, int) {
	if len(args) == 0 {
		return true, 0
	}
	builtin, ok := All[args[0]]
	if !ok {
		return false, 0
	}
	return true, builtin.Main(sh, args)
}

// Jobs lists running and stopped jobs, oldest first.
func Jobs(sh Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "list process IDs in addition to the normal information")
	w := sh.Output()

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(w, "%s: %v\n", args[0], err)
		fmt.Fprintf(w, "%s: usage: jobs [-l]\n", args[0])
		return 2
	}

	for _, job := range sh.Jobs().Active() {
		if *long {
			fmt.Fprintf(w, "[%d]   %d %s                   %s", job.ID, job.PID, job.State, job.Line)
			if job.Background && job.State == jobs.Running {
				fmt.Fprint(w, "&")
			}
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintln(w, job)
	}
	return 0
}

// Cd changes the working directory, defaulting to $HOME.
func Cd(sh Shell, args []string) int {
	w := sh.Output()
	switch len(args) {
	case 1:
		home := os.Getenv("HOME")
		if home == "" {
			fmt.Fprintf(w, "%s: HOME not set\n", args[0])
			return 1
		}
		args = append(args, home)
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(w, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(w, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Pwd prints the working directory.
func Pwd(sh Shell, args []string) int {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(sh.Output(), "%s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintln(sh.Output(), dir)
	return 0
}

// Fg resumes a job and waits for it as the foreground job.
func Fg(sh Shell, args []string) int {
	job, ok := selectJob(sh, args)
	if !ok {
		return 1
	}

	fmt.Fprintln(sh.Output(), job.Line)
	if err := sh.Continue(job.PID, true); err != nil {
		fmt.Fprintf(sh.Output(), "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Bg resumes a stopped job in the background.
func Bg(sh Shell, args []string) int {
	job, ok := selectJob(sh, args)
	if !ok {
		return 1
	}

	if err := sh.Continue(job.PID, false); err != nil {
		fmt.Fprintf(sh.Output(), "%s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintf(sh.Output(), "[%d]   %s &\n", job.ID, job.Line)
	return 0
}

// Exit leaves the shell with an optional status.
func Exit(sh Shell, args []string) int {
	code := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(sh.Output(), "%s: %s: numeric argument required\n", args[0], args[1])
			code = 2
		} else {
			code = n & 0xff
		}
	}
	sh.Exit(code)
	return code
}

// selectJob resolves the optional job spec ("%2" or "2") of fg and bg,
// falling back to the current job.
func selectJob(sh Shell, args []string) (jobs.Job, bool) {
	w := sh.Output()
	table := sh.Jobs()

	if len(args) < 2 {
		job, ok := table.Current()
		if !ok {
			fmt.Fprintf(w, "%s: %v\n", args[0], jobs.ErrNoCurrentJob)
		}
		return job, ok
	}

	id, err := parseJobSpec(args[1])
	if err != nil {
		fmt.Fprintf(w, "%s: %s: %v\n", args[0], args[1], err)
		return jobs.Job{}, false
	}
	job, ok := table.FindByID(id)
	if !ok {
		fmt.Fprintf(w, "%s: %s: %v\n", args[0], args[1], jobs.ErrNoSuchJob)
	}
	return job, ok
}

func parseJobSpec(spec string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid job spec")
	}
	return id, nil
}

func init() {
	All["jobs"] = BuiltinFunc(Jobs)
	All["cd"] = BuiltinFunc(Cd)
	All["pwd"] = BuiltinFunc(Pwd)
	All["fg"] = BuiltinFunc(Fg)
	All["bg"] = BuiltinFunc(Bg)
	All["exit"] = BuiltinFunc(Exit)
}
