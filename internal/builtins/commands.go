package builtins

import "vsh/internal/dirstate"

type exitBuiltin struct{}

func (exitBuiltin) Name() string        { return "exit" }
func (exitBuiltin) Description() string { return "leave the shell" }
func (exitBuiltin) Run([]string) Result {
	return Result{Effect: Exit, InCaller: true}
}

type cdBuiltin struct {
	home func() string
}

func (*cdBuiltin) Name() string        { return "cd" }
func (*cdBuiltin) Description() string { return "change the working directory" }

func (c *cdBuiltin) Run(args []string) Result {
	var home string
	if c.home != nil {
		home = c.home()
	}
	path := home
	if len(args) > 0 {
		path = dirstate.ExpandHome(args[0], home)
	}
	return Result{Effect: ChangeDirectory, Path: path, InCaller: true}
}

// clearBackgroundBuiltin terminates every background job.
type clearBackgroundBuiltin struct{}

func (clearBackgroundBuiltin) Name() string        { return "liberamoita" }
func (clearBackgroundBuiltin) Description() string { return "terminate all background jobs" }
func (clearBackgroundBuiltin) Run([]string) Result {
	return Result{Effect: ClearBackground, InCaller: true}
}

type armageddonBuiltin struct{}

func (armageddonBuiltin) Name() string        { return "armageddon" }
func (armageddonBuiltin) Description() string { return "terminate all background jobs and exit" }
func (armageddonBuiltin) Run([]string) Result {
	return Result{Effect: ClearBackgroundAndExit, InCaller: true}
}

type jobsBuiltin struct{}

func (jobsBuiltin) Name() string        { return "jobs" }
func (jobsBuiltin) Description() string { return "list background jobs" }
func (jobsBuiltin) Run([]string) Result {
	return Result{Effect: ShowJobs, InCaller: true}
}

type pwdBuiltin struct{}

func (pwdBuiltin) Name() string        { return "pwd" }
func (pwdBuiltin) Description() string { return "print the working directory" }
func (pwdBuiltin) Run([]string) Result {
	return Result{Effect: PrintDirectory, InCaller: true}
}
