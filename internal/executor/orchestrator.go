package executor

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"vsh/internal/builtins"
	"vsh/internal/config"
	"vsh/internal/jobs"
	"vsh/internal/parser"
)

// Effects applies the result of an invocation run in the shell. It
// returns false when the remaining members of the group must not run.
type Effects interface {
	Apply(res builtins.Result) bool
}

type Config struct {
	Policy   config.PipelinePolicy
	Builtins *builtins.Registry
	Jobs     *jobs.Table
	// Terminal is nil when the shell does not own its terminal.
	Terminal *Terminal
	Logger   *slog.Logger
	HostLog  HostLog
}

// Orchestrator turns call groups into processes.
type Orchestrator struct {
	policy   config.PipelinePolicy
	dispatch *Dispatcher
	jobs     *jobs.Table
	term     *Terminal
	reaper   *Reaper
	hostLog  HostLog
	logger   *slog.Logger
}

func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Orchestrator{
		policy:   cfg.Policy,
		dispatch: NewDispatcher(cfg.Builtins, cfg.Terminal, logger),
		jobs:     cfg.Jobs,
		term:     cfg.Terminal,
		reaper:   NewReaper(cfg.Jobs, logger),
		hostLog:  cfg.HostLog,
		logger:   logger,
	}
	if o.policy == config.DetachedSession {
		// detached pipelines outlive their host; their members must come
		// back to the shell to be counted
		if err := becomeSubreaper(); err != nil {
			logger.Warn("cannot collect detached pipeline members", "err", err)
		} else {
			o.reaper.strays = true
		}
	}
	return o
}

func (o *Orchestrator) Reaper() *Reaper { return o.reaper }

// Run executes one call group. The error is non-nil only on a fatal
// spawn failure.
func (o *Orchestrator) Run(g parser.CallGroup, fx Effects) error {
	if len(g.Invocations) == 0 {
		return nil
	}
	o.logger.Debug("run group", "group", g.String())
	switch g.Kind {
	case parser.Sequential:
		if g.Background {
			return o.runHosted(g, hostSequence, &syscall.SysProcAttr{Setpgid: true}, jobs.NewPidJob)
		}
		return o.runSequence(g, fx)
	case parser.Piped:
		if o.policy == config.DetachedSession {
			counted := func(pgid int, _ []int, cmd string) *jobs.Job {
				return jobs.NewCountedJob(pgid, len(g.Invocations), cmd)
			}
			return o.runHosted(g, hostPipeline, &syscall.SysProcAttr{Setsid: true}, counted)
		}
		return o.runPipeline(g, fx)
	}
	return o.runBasic(g, fx)
}

func (o *Orchestrator) runBasic(g parser.CallGroup, fx Effects) error {
	inv := g.Invocations[0]
	if !g.Background {
		_, err := o.runForeground(inv, fx)
		return err
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	defer devNull.Close()

	res, err := o.dispatch.Invoke(inv, Options{Fork: true, Placement: NewGroup, Stdin: devNull})
	if err != nil {
		return err
	}
	if res.ChildPid == 0 {
		fx.Apply(res)
		return nil
	}
	return o.register(jobs.NewPidJob(res.ChildPid, []int{res.ChildPid}, commandText(g)))
}

func (o *Orchestrator) runSequence(g parser.CallGroup, fx Effects) error {
	for _, inv := range g.Invocations {
		more, err := o.runForeground(inv, fx)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// runForeground runs inv in its own group with the terminal and waits
// for it. A stopped child becomes a background job.
func (o *Orchestrator) runForeground(inv parser.Invocation, fx Effects) (bool, error) {
	res, err := o.dispatch.Invoke(inv, Options{
		Fork:       true,
		Wait:       true,
		Placement:  NewGroup,
		Foreground: o.term != nil,
	})
	if err != nil {
		return false, err
	}
	if res.Stopped {
		o.registerStopped(res.ChildPid, []int{res.ChildPid}, strings.Join(inv.Argv, " "))
		return false, nil
	}
	return fx.Apply(res), nil
}

type jobFactory func(pgid int, pids []int, cmd string) *jobs.Job

// runHosted hands the whole group to a process host and tracks the host's
// group as one job.
func (o *Orchestrator) runHosted(g parser.CallGroup, kind hostKind, attr *syscall.SysProcAttr, newJob jobFactory) error {
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	defer devNull.Close()

	pid, err := startHost(o.hostPlan(kind, g), attr, devNull)
	if err != nil {
		return fmt.Errorf("%w: host: %v", ErrSpawnFailed, err)
	}
	o.logger.Debug("host started", "kind", kind, "pid", pid)
	return o.register(newJob(pid, []int{pid}, commandText(g)))
}

func (o *Orchestrator) hostPlan(kind hostKind, g parser.CallGroup) hostPlan {
	plan := hostPlan{Kind: kind, Log: o.hostLog}
	for _, inv := range g.Invocations {
		plan.Invocations = append(plan.Invocations, inv.Argv)
	}
	return plan
}

func (o *Orchestrator) register(job *jobs.Job) error {
	if err := o.jobs.Register(job); err != nil {
		// a reused pgid means the old job was never reaped
		o.logger.Warn("job not tracked", "err", err)
	}
	return nil
}

func (o *Orchestrator) registerStopped(pgid int, pids []int, cmd string) {
	fmt.Fprintln(os.Stdout)
	o.register(jobs.NewPidJob(pgid, pids, cmd))
	fmt.Fprintf(os.Stdout, "Stopped\t%s\n", cmd)
}

// commandText is the line shown for a group in job reports.
func commandText(g parser.CallGroup) string {
	sep := " "
	switch g.Kind {
	case parser.Sequential:
		sep = " && "
	case parser.Piped:
		sep = " | "
	}
	parts := make([]string, len(g.Invocations))
	for i, inv := range g.Invocations {
		parts[i] = strings.Join(inv.Argv, " ")
	}
	return strings.Join(parts, sep)
}
