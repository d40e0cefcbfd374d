package dirstate

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

var ErrInvalidDirectory = errors.New("is not a valid directory")

// State answers the shell's questions about its working directory.
type State struct {
	getenv func(string) string
}

func New() *State {
	return &State{getenv: os.Getenv}
}

// NewWithEnv is New with an injected environment lookup.
func NewWithEnv(getenv func(string) string) *State {
	return &State{getenv: getenv}
}

func (s *State) Cwd() (string, error) {
	return os.Getwd()
}

// Home returns $HOME, falling back to the password database.
func (s *State) Home() string {
	if home := s.getenv("HOME"); home != "" {
		return home
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	return ""
}

// ChangeDir moves the process to dir after resolving symlinks. The
// working directory is unchanged on error.
func (s *State) ChangeDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q %w", dir, ErrInvalidDirectory)
	}
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("%q %w", dir, ErrInvalidDirectory)
	}
	real, err = filepath.Abs(real)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", dir, err)
	}
	if err := os.Chdir(real); err != nil {
		return fmt.Errorf("chdir %q: %w", real, err)
	}
	return nil
}

// Pretty is the prompt form of the working directory.
func (s *State) Pretty() string {
	cwd, err := s.Cwd()
	if err != nil {
		return "?"
	}
	return PrettyPath(cwd, s.Home())
}

// ExpandHome replaces a leading ~ with home.
func ExpandHome(path, home string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	return home + path[1:]
}

// PrettyPath shortens cwd for display: the home directory becomes ~ and
// only the last two components are kept, with /... marking the rest.
func PrettyPath(cwd, home string) string {
	if home != "" && cwd == home {
		return "~/"
	}

	prefix := ""
	rest := cwd
	if home != "" && home != "/" && strings.HasPrefix(cwd, home+"/") {
		prefix = "~"
		rest = strings.TrimPrefix(cwd, home)
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) <= 2 {
		return prefix + rest
	}
	return prefix + "/.../" + strings.Join(parts[len(parts)-2:], "/")
}
