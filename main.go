package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vsh/internal/builtins"
	"vsh/internal/config"
	"vsh/internal/executor"
	"vsh/internal/logging"
	"vsh/internal/repl"
)

func main() {
	if executor.HostRequested() {
		os.Exit(executor.HostMain())
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		configPath string
		debug      bool
		status     int
	)
	root := &cobra.Command{
		Use:           "vsh",
		Short:         "A small interactive shell with pipelines and background jobs",
		Long:          longHelp(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, os.Getenv)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
				cfg.Log.Level = "debug"
			}
			session := logging.NewSession()
			logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format, session)
			logger.Debug("starting", "pid", os.Getpid(), "policy", cfg.PipelinePolicy)

			sh := repl.New(repl.Options{Config: cfg, Logger: logger, Session: session})
			status, err = sh.Run(cmd.Context())
			return err
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "config file (yaml or toml)")
	root.Flags().BoolVarP(&debug, "debug", "d", false, "log diagnostics to stderr")
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return resolveError(err)
	}
	return status
}

func longHelp() string {
	var b strings.Builder
	b.WriteString("vsh reads command lines and runs them as process groups.\n\n")
	b.WriteString("  a | b | c        pipeline\n")
	b.WriteString("  a && b           run in sequence\n")
	b.WriteString("  a &              run in the background\n\nBuiltins:\n")
	for _, bi := range builtins.Default(nil).All() {
		fmt.Fprintf(&b, "  %-16s %s\n", bi.Name(), bi.Description())
	}
	b.WriteString("\nSet SHELL_TYPE=DEFAULT to keep pipelines in the foreground.")
	return b.String()
}

func resolveError(err error) int {
	fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
	if errors.Is(err, executor.ErrSpawnFailed) {
		return executor.ExitSpawnFailed
	}
	return 1
}
