// Package resolver finds executables on the command search path.
package resolver

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// EnvPath names the variable holding the search path.
const EnvPath = "PATH"

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

// Resolver maps command names to executable paths.
type Resolver struct {
	// Fs is the filesystem searched.
	Fs afero.Fs
	// LookupEnv reads the search path.
	LookupEnv func(key string) (string, bool)
	// Getwd anchors empty PATH segments.
	Getwd func() (string, error)
}

// New returns a resolver over the host filesystem and environment.
func New() *Resolver {
	return &Resolver{
		Fs:        afero.NewOsFs(),
		LookupEnv: os.LookupEnv,
		Getwd:     os.Getwd,
	}
}

// Resolve searches for an executable named name in the directories named by
// the PATH environment variable. If name contains a slash, it is tried
// directly and the PATH is not consulted. An empty PATH element means the
// current directory.
func (r *Resolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}
	if strings.Contains(name, "/") {
		if err := r.findExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	pathList, ok := r.LookupEnv(EnvPath)
	if !ok {
		return "", ErrNotFound
	}
	for _, dir := range strings.Split(pathList, ":") {
		if dir == "" {
			wd, err := r.Getwd()
			if err != nil {
				continue
			}
			dir = wd
		}
		candidate := filepath.Join(dir, name)
		if err := r.findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}

// findExecutable checks existence, then kind, then permission.
func (r *Resolver) findExecutable(file string) error {
	info, err := r.Fs.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	case info.IsDir():
		return fs.ErrPermission
	}

	if _, ok := r.Fs.(*afero.OsFs); ok {
		if err := unix.Access(file, unix.X_OK); err != nil {
			return fs.ErrPermission
		}
		return nil
	}
	if info.Mode()&0111 == 0 {
		return fs.ErrPermission
	}
	return nil
}
