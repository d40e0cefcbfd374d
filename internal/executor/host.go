package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"vsh/internal/builtins"
	"vsh/internal/dirstate"
	"vsh/internal/logging"
	"vsh/internal/parser"
)

// hostEnv carries the plan of a process host: a copy of the shell
// started to run a group on its own, the way a forked shell would.
const hostEnv = "VSH_HOST_PLAN"

type hostKind string

const (
	// hostSequence runs the members one after another and becomes the
	// last one.
	hostSequence hostKind = "sequence"
	// hostPipeline starts all but the last member in its own group,
	// connected by pipes, and becomes the last one.
	hostPipeline hostKind = "pipeline"
	// hostExit exits at once with Status. It stands in for pipeline
	// members that could not be started so the member count still holds.
	hostExit hostKind = "exit"
)

type hostPlan struct {
	Kind        hostKind   `json:"kind"`
	Invocations [][]string `json:"invocations,omitempty"`
	Status      int        `json:"status,omitempty"`
	Log         HostLog    `json:"log"`
}

// HostLog configures the logger of process hosts so their records carry
// the session of the shell that started them.
type HostLog struct {
	Level   string `json:"level,omitempty"`
	Format  string `json:"format,omitempty"`
	Session string `json:"session,omitempty"`
}

func hostLogger(plan hostPlan, w io.Writer) *slog.Logger {
	return logging.New(w, plan.Log.Level, plan.Log.Format, plan.Log.Session)
}

// HostRequested reports whether this process was started as a process
// host. main must check it before doing anything else.
func HostRequested() bool {
	return os.Getenv(hostEnv) != ""
}

// HostMain runs the plan handed down by the shell and returns the exit
// status. When the last member is an external program it does not return.
func HostMain() int {
	raw := os.Getenv(hostEnv)
	os.Unsetenv(hostEnv)

	var plan hostPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		fmt.Fprintf(os.Stderr, "vsh: bad host plan: %v\n", err)
		return ExitSpawnFailed
	}
	if plan.Kind == hostExit || len(plan.Invocations) == 0 {
		return plan.Status
	}

	logger := hostLogger(plan, os.Stderr).With("host", plan.Kind, "pid", os.Getpid())
	logger.Debug("host running", "members", len(plan.Invocations))

	dirs := dirstate.New()
	d := NewDispatcher(builtins.Default(dirs.Home), nil, logger)
	switch plan.Kind {
	case hostSequence:
		return hostRunSequence(d, dirs, plan)
	case hostPipeline:
		return hostRunPipeline(d, plan)
	}
	fmt.Fprintf(os.Stderr, "vsh: unknown host kind %q\n", plan.Kind)
	return ExitSpawnFailed
}

func hostRunSequence(d *Dispatcher, dirs *dirstate.State, plan hostPlan) int {
	status := 0
	for i, argv := range plan.Invocations {
		last := i == len(plan.Invocations)-1
		res, err := d.Invoke(parser.Invocation{Argv: argv}, Options{Fork: !last, Wait: !last})
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
			return ExitSpawnFailed
		}
		switch res.Effect {
		case builtins.Exit, builtins.ClearBackgroundAndExit:
			return status
		case builtins.ChangeDirectory:
			if err := dirs.ChangeDir(res.Path); err != nil {
				fmt.Fprintf(os.Stderr, "cd: %q is not a valid directory\n", res.Path)
			}
		case builtins.UnknownCommand:
			fmt.Fprintf(os.Stderr, "Unknown command %s\n", res.Name)
			status = ExitUnknownCommand
		case builtins.PrintDirectory:
			if cwd, err := dirs.Cwd(); err == nil {
				fmt.Println(cwd)
			}
		}
	}
	return status
}

func hostRunPipeline(d *Dispatcher, plan hostPlan) int {
	pgid := os.Getpid()
	n := len(plan.Invocations)

	var prev *os.File
	for i, argv := range plan.Invocations[:n-1] {
		r, w, err := os.Pipe()
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: pipe: %v\n", err)
			return ExitSpawnFailed
		}
		opts := Options{Fork: true, Placement: JoinGroup, Pgid: pgid, Stdin: prev, Stdout: w}
		if i == 0 {
			opts.Stdin = os.Stdin
		}
		res, err := d.Invoke(parser.Invocation{Argv: argv}, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
			return ExitSpawnFailed
		}
		if res.ChildPid == 0 {
			status := 0
			if res.Effect == builtins.UnknownCommand {
				fmt.Fprintf(os.Stderr, "Unknown command %s\n", res.Name)
				status = ExitUnknownCommand
			}
			attr := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
			if _, err := startHost(hostPlan{Kind: hostExit, Status: status, Log: plan.Log}, attr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
				return ExitSpawnFailed
			}
		}
		w.Close()
		if prev != nil {
			prev.Close()
		}
		prev = r
	}

	d.Invoke(parser.Invocation{Argv: plan.Invocations[n-1]}, Options{Stdin: prev})
	return 0
}

// startHost launches a process host for plan and returns its pid.
func startHost(plan hostPlan, attr *syscall.SysProcAttr, stdin *os.File) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return 0, err
	}
	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(), hostEnv+"="+string(raw))
	if stdin != nil {
		cmd.Stdin = stdin
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = attr
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}
