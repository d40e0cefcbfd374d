package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"vsh/internal/builtins"
	"vsh/internal/config"
	"vsh/internal/dirstate"
	"vsh/internal/executor"
	"vsh/internal/input"
	"vsh/internal/jobs"
	"vsh/internal/parser"
)

// Options configure a Shell. Session tags the records of process hosts
// started by the shell.
type Options struct {
	Config  *config.Config
	In      *os.File
	Out     io.Writer
	Logger  *slog.Logger
	Session string
	Getenv  func(string) string
}

// Shell owns the state of one interactive session. Everything that
// spawns, reaps or prints runs on the goroutine that calls Run.
type Shell struct {
	cfg    *config.Config
	dirs   *dirstate.State
	table  *jobs.Table
	orch   *executor.Orchestrator
	input  *input.Collector
	prompt *Prompt
	out    io.Writer
	getenv func(string) string
	logger *slog.Logger

	running bool
	status  int
}

func New(opts Options) *Shell {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dirs := dirstate.NewWithEnv(getenv)
	table := jobs.NewTable(jobs.Config{Out: out, Logger: logger})
	term := executor.NewTerminal(in)
	if term == nil {
		logger.Debug("no terminal control, foreground jobs share the shell's group")
	}
	s := &Shell{
		cfg:    cfg,
		dirs:   dirs,
		table:  table,
		input:  input.New(in, logger),
		prompt: NewPrompt(cfg.Prompt),
		out:    out,
		getenv: getenv,
		logger: logger,

		running: true,
	}
	s.orch = executor.New(executor.Config{
		Policy:   cfg.PipelinePolicy,
		Builtins: builtins.Default(dirs.Home),
		Jobs:     table,
		Terminal: term,
		Logger:   logger,
		HostLog: executor.HostLog{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Session: opts.Session,
		},
	})
	return s
}

// Run reads and executes lines until exit, end of input or ctx is done.
// It returns the status the shell should exit with.
func (s *Shell) Run(ctx context.Context) (int, error) {
	sigs := make(chan os.Signal, 32)
	signal.Notify(sigs, unix.SIGINT, unix.SIGQUIT, unix.SIGCHLD,
		unix.SIGUSR1, unix.SIGUSR2, unix.SIGTSTP, unix.SIGTTIN)
	defer signal.Stop(sigs)
	defer s.shutdown()

	for s.running {
		s.drain(sigs)
		fmt.Fprint(s.out, s.prompt.Render(s.dirs.Pretty()))

		line, ok := s.await(ctx, s.input.Start(), sigs)
		if !ok {
			continue
		}
		if err := s.Execute(line); err != nil {
			return executor.ExitSpawnFailed, err
		}
	}
	return s.status, nil
}

// await blocks for the current input cycle while serving signals. It
// reports false when the cycle produced no line.
func (s *Shell) await(ctx context.Context, lines <-chan input.Line, sigs <-chan os.Signal) (string, bool) {
	for {
		select {
		case <-ctx.Done():
			s.input.Cancel()
			s.running = false
			return "", false

		case l := <-lines:
			switch {
			case l.Err == nil:
				return l.Text, true
			case errors.Is(l.Err, input.ErrCanceled):
			case errors.Is(l.Err, io.EOF):
				fmt.Fprintln(s.out)
				s.running = false
			default:
				s.logger.Error("read input", "err", l.Err)
				s.running = false
			}
			return "", false

		case sig := <-sigs:
			switch sig {
			case unix.SIGCHLD:
				s.orch.Reaper().Reap()
			case unix.SIGINT, unix.SIGQUIT:
				s.input.Cancel()
				fmt.Fprintln(s.out)
				return "", false
			case unix.SIGUSR1, unix.SIGUSR2:
				s.input.Cancel()
				s.feelWeird()
				return "", false
			}
		}
	}
}

// drain handles the signals that arrived while no input was being
// collected. Interrupts meant for a foreground job are dropped.
func (s *Shell) drain(sigs <-chan os.Signal) {
	for {
		select {
		case sig := <-sigs:
			if sig == unix.SIGUSR1 || sig == unix.SIGUSR2 {
				s.feelWeird()
			}
		default:
			s.orch.Reaper().Reap()
			return
		}
	}
}

func (s *Shell) feelWeird() {
	s.clearJobs()
	fmt.Fprint(s.out, weird)
}

// Execute parses line and runs its groups in order. Only a fatal spawn
// failure is returned.
func (s *Shell) Execute(line string) error {
	plan := parser.ParseWithEnv(line, s.getenv)
	s.logger.Debug("plan", "line", line, "plan", plan.String())
	if plan.Err != nil {
		fmt.Fprintf(s.out, "vsh: %v\n", plan.Err)
		return nil
	}
	for _, g := range plan.Groups {
		if !s.running {
			break
		}
		if err := s.orch.Run(g, s); err != nil {
			return err
		}
	}
	if s.cfg.Debug {
		s.logger.Debug("jobs", "table", s.table.Dump())
	}
	return nil
}

// Apply implements executor.Effects.
func (s *Shell) Apply(res builtins.Result) bool {
	switch res.Effect {
	case builtins.Exit:
		s.running = false
		return false
	case builtins.ClearBackground:
		s.clearJobs()
	case builtins.ClearBackgroundAndExit:
		s.clearJobs()
		s.running = false
		return false
	case builtins.ChangeDirectory:
		if err := s.dirs.ChangeDir(res.Path); err != nil {
			fmt.Fprintf(s.out, "cd: %v\n", err)
		}
	case builtins.UnknownCommand:
		fmt.Fprintf(s.out, "Unknown command %s\n", res.Name)
		s.status = executor.ExitUnknownCommand
	case builtins.ShowJobs:
		fmt.Fprint(s.out, s.table.Dump())
	case builtins.PrintDirectory:
		cwd, err := s.dirs.Cwd()
		if err != nil {
			fmt.Fprintf(s.out, "pwd: %v\n", err)
			break
		}
		fmt.Fprintln(s.out, cwd)
	}
	return true
}

func (s *Shell) clearJobs() {
	pgids := s.table.Pgids()
	s.table.ClearAll()
	s.orch.Reaper().Abandon(pgids)
}

func (s *Shell) shutdown() {
	s.clearJobs()
	s.logger.Debug("shell exiting", "status", s.status)
}

func (s *Shell) Status() int { return s.status }

func (s *Shell) Jobs() *jobs.Table { return s.table }
