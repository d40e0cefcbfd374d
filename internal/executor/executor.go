package executor

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"vsh/internal/builtins"
	"vsh/internal/parser"
)

const (
	// ExitUnknownCommand is the status of a process whose program could
	// not be found or executed.
	ExitUnknownCommand = 127
	// ExitSpawnFailed is the status of a shell that could not create a
	// process or pipe.
	ExitSpawnFailed = 71
)

var ErrSpawnFailed = errors.New("spawn failed")

// Placement decides the process group of a new process.
type Placement int

const (
	// InheritGroup keeps the caller's process group.
	InheritGroup Placement = iota
	// NewGroup makes the process the leader of a new group.
	NewGroup
	// JoinGroup puts the process into Options.Pgid.
	JoinGroup
	// NewSession makes the process a session leader.
	NewSession
)

type Options struct {
	// Fork runs the program in a new process; otherwise the calling
	// process image is replaced.
	Fork bool
	// Wait blocks until the new process terminates or stops.
	Wait      bool
	Placement Placement
	Pgid      int
	// Foreground hands the terminal to the new process group while the
	// caller waits.
	Foreground bool

	Stdin, Stdout, Stderr *os.File
}

// Dispatcher runs single invocations, either as builtins or as external
// programs.
type Dispatcher struct {
	builtins *builtins.Registry
	term     *Terminal
	logger   *slog.Logger
}

func NewDispatcher(reg *builtins.Registry, term *Terminal, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{builtins: reg, term: term, logger: logger}
}

// Invoke executes inv. The error is non-nil only when a process could not
// be created, which callers treat as fatal.
func (d *Dispatcher) Invoke(inv parser.Invocation, opts Options) (builtins.Result, error) {
	if inv.Empty() {
		return builtins.Result{Effect: builtins.Continue, InCaller: true}, nil
	}
	if b, ok := d.builtins.Lookup(inv.Name()); ok {
		return b.Run(inv.Args()), nil
	}

	path, err := exec.LookPath(inv.Name())
	if err != nil {
		if !opts.Fork {
			os.Exit(ExitUnknownCommand)
		}
		return unknown(inv.Name()), nil
	}
	if !opts.Fork {
		d.replace(path, inv, opts)
	}

	pid, err := d.spawn(path, inv, opts)
	if err != nil {
		if opts.Foreground && opts.Wait && d.term != nil {
			// the child may have taken the terminal before exec failed
			d.term.Reclaim()
		}
		if isExecFailure(err) {
			d.logger.Debug("exec failed", "program", inv.Name(), "err", err)
			return unknown(inv.Name()), nil
		}
		return builtins.Result{}, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, inv.Name(), err)
	}

	res := builtins.Result{Effect: builtins.Continue, ChildPid: pid}
	if !opts.Wait {
		return res, nil
	}

	ws, err := waitChild(pid)
	if opts.Foreground && d.term != nil {
		d.term.Reclaim()
	}
	if err != nil {
		d.logger.Debug("wait failed", "pid", pid, "err", err)
		return res, nil
	}
	switch {
	case ws.Stopped():
		res.Stopped = true
	case ws.Exited() && ws.ExitStatus() == ExitUnknownCommand:
		res = unknown(inv.Name())
		res.ChildPid = pid
	}
	return res, nil
}

func unknown(name string) builtins.Result {
	return builtins.Result{Effect: builtins.UnknownCommand, Name: name, InCaller: true}
}

func (d *Dispatcher) spawn(path string, inv parser.Invocation, opts Options) (int, error) {
	cmd := exec.Command(path)
	cmd.Args = inv.Argv
	cmd.Stdin = fileOr(opts.Stdin, os.Stdin)
	cmd.Stdout = fileOr(opts.Stdout, os.Stdout)
	cmd.Stderr = fileOr(opts.Stderr, os.Stderr)

	attr := &syscall.SysProcAttr{}
	switch opts.Placement {
	case NewGroup:
		attr.Setpgid = true
	case JoinGroup:
		attr.Setpgid = true
		attr.Pgid = opts.Pgid
	case NewSession:
		attr.Setsid = true
	}

	// the child claims the terminal itself when one of its standard
	// streams is the terminal, otherwise the parent does it after start
	handOver := false
	if opts.Foreground && d.term != nil && attr.Setpgid {
		if ctty, ok := d.term.ctty(cmd.Stdin, cmd.Stdout, cmd.Stderr); ok {
			attr.Foreground = true
			attr.Ctty = ctty
		} else {
			handOver = true
		}
	}
	cmd.SysProcAttr = attr

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// reaping is done with wait4 so the shell can see stops and group
	// members, not through os.Process
	cmd.Process.Release()

	if handOver {
		pgid := opts.Pgid
		if opts.Placement == NewGroup || pgid == 0 {
			pgid = pid
		}
		d.term.HandTo(pgid)
	}
	d.logger.Debug("spawned", "program", inv.Name(), "pid", pid, "placement", opts.Placement)
	return pid, nil
}

// replace turns the calling process into the program. It only returns
// by exiting with ExitUnknownCommand.
func (d *Dispatcher) replace(path string, inv parser.Invocation, opts Options) {
	switch opts.Placement {
	case NewGroup:
		unix.Setpgid(0, 0)
	case JoinGroup:
		unix.Setpgid(0, opts.Pgid)
	case NewSession:
		unix.Setsid()
	}
	for fd, f := range []*os.File{opts.Stdin, opts.Stdout, opts.Stderr} {
		if f != nil && int(f.Fd()) != fd {
			if err := unix.Dup2(int(f.Fd()), fd); err != nil {
				os.Exit(ExitUnknownCommand)
			}
		}
	}
	unix.Exec(path, inv.Argv, os.Environ())
	os.Exit(ExitUnknownCommand)
}

func fileOr(f, fallback *os.File) *os.File {
	if f != nil {
		return f
	}
	return fallback
}

// isExecFailure reports whether err means the program itself could not
// be executed, as opposed to the system refusing a new process.
func isExecFailure(err error) bool {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ENOEXEC, unix.EISDIR, unix.ENOTDIR, unix.ETXTBSY, unix.ELOOP, unix.ENAMETOOLONG, unix.E2BIG:
			return true
		}
	}
	return false
}

// waitChild blocks until pid terminates or stops.
func waitChild(pid int) (unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		return ws, err
	}
}
