package builtins

import (
	"fmt"
	"sort"
	"sync"
)

// Effect tells the shell what to do after an invocation.
type Effect int

const (
	Continue Effect = iota
	Exit
	ClearBackground
	ClearBackgroundAndExit
	ChangeDirectory
	UnknownCommand
	ShowJobs
	PrintDirectory
)

func (e Effect) String() string {
	switch e {
	case Continue:
		return "Continue"
	case Exit:
		return "Exit"
	case ClearBackground:
		return "ClearBackground"
	case ClearBackgroundAndExit:
		return "ClearBackgroundAndExit"
	case ChangeDirectory:
		return "ChangeDirectory"
	case UnknownCommand:
		return "UnknownCommand"
	case ShowJobs:
		return "ShowJobs"
	case PrintDirectory:
		return "PrintDirectory"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// Result is produced once per executed invocation.
type Result struct {
	Effect Effect
	// Path is the target of ChangeDirectory.
	Path string
	// Name is the program of UnknownCommand.
	Name string
	// InCaller is true when the result was produced by the calling
	// process rather than a spawned child.
	InCaller bool
	ChildPid int
	// Stopped is set when a waited-for child was stopped, not terminated.
	Stopped bool
}

// Builtin is a command implemented inside the shell.
type Builtin interface {
	Name() string
	Description() string
	Run(args []string) Result
}

// Registry maps builtin names to implementations.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]Builtin
}

func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]Builtin)}
}

// Default returns a registry holding every builtin. home resolves the
// user's home directory for cd.
func Default(home func() string) *Registry {
	r := NewRegistry()
	r.Register(&exitBuiltin{})
	r.Register(&cdBuiltin{home: home})
	r.Register(&clearBackgroundBuiltin{})
	r.Register(&armageddonBuiltin{})
	r.Register(&jobsBuiltin{})
	r.Register(&pwdBuiltin{})
	return r
}

func (r *Registry) Register(b Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[b.Name()] = b
}

func (r *Registry) Lookup(name string) (Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builtins[name]
	return b, ok
}

// All returns the registered builtins sorted by name.
func (r *Registry) All() []Builtin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Builtin, 0, len(r.builtins))
	for _, b := range r.builtins {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name() < all[j].Name()
	})
	return all
}
