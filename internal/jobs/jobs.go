package jobs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"
)

var (
	ErrDuplicatePgid = errors.New("process group already tracked")
	ErrNoSuchJob     = errors.New("no such job")
)

// Job is a detached process group. Members are tracked either as an
// explicit pid set or, when the shell cannot know the pids, as a count.
type Job struct {
	Pgid    int
	Command string
	pids    []int
	count   int
	counted bool
}

// NewPidJob tracks the given child pids of pgid.
func NewPidJob(pgid int, pids []int, command string) *Job {
	return &Job{Pgid: pgid, Command: command, pids: append([]int(nil), pids...)}
}

// NewCountedJob tracks count anonymous children of pgid.
func NewCountedJob(pgid, count int, command string) *Job {
	return &Job{Pgid: pgid, Command: command, count: count, counted: true}
}

func (j *Job) Counted() bool { return j.counted }

func (j *Job) Members() int {
	if j.counted {
		return j.count
	}
	return len(j.pids)
}

func (j *Job) Pids() []int {
	return append([]int(nil), j.pids...)
}

func (j *Job) remove(pid, pgid int) bool {
	if j.counted {
		if j.count > 0 && pgid == j.Pgid {
			j.count--
			return true
		}
		return false
	}
	for i, p := range j.pids {
		if p == pid {
			j.pids = append(j.pids[:i], j.pids[i+1:]...)
			return true
		}
	}
	return false
}

// Signaler delivers a signal to every process of a group.
type Signaler interface {
	SignalGroup(pgid int, sig unix.Signal) error
}

type killSignaler struct{}

func (killSignaler) SignalGroup(pgid int, sig unix.Signal) error {
	if err := unix.Kill(-pgid, sig); err != nil {
		return err
	}
	// stopped members only act on the signal once continued
	return unix.Kill(-pgid, unix.SIGCONT)
}

type Config struct {
	// Out receives the job status lines. Defaults to os.Stdout.
	Out      io.Writer
	Signaler Signaler
	Logger   *slog.Logger
}

// Table is the ordered set of live background jobs.
type Table struct {
	mu       sync.Mutex
	jobs     []*Job
	out      io.Writer
	signaler Signaler
	logger   *slog.Logger
}

func NewTable(cfg Config) *Table {
	t := &Table{out: cfg.Out, signaler: cfg.Signaler, logger: cfg.Logger}
	if t.out == nil {
		t.out = os.Stdout
	}
	if t.signaler == nil {
		t.signaler = killSignaler{}
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// Register appends job and announces its position.
func (t *Table) Register(job *Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		if j.Pgid == job.Pgid {
			return fmt.Errorf("register pgid %d: %w", job.Pgid, ErrDuplicatePgid)
		}
	}
	t.jobs = append(t.jobs, job)
	fmt.Fprintf(t.out, "[%d] %d\n", len(t.jobs), job.Pgid)
	t.logger.Debug("job registered", "pgid", job.Pgid, "members", job.Members(), "command", job.Command)
	return nil
}

// Reap removes the terminated pid (a member of pgid) from the job that
// owns it. A job left without members is removed and reported done.
// It returns false when no job owns the pid.
func (t *Table) Reap(pid, pgid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, j := range t.jobs {
		if !j.remove(pid, pgid) {
			continue
		}
		fmt.Fprintf(t.out, "[%d] %d\n", i+1, pid)
		if j.Members() == 0 {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			fmt.Fprintf(t.out, "[%d] + Done\t%s\n", i+1, j.Command)
			t.logger.Debug("job done", "pgid", j.Pgid)
		}
		return true
	}
	return false
}

// Complete removes the job of pgid once none of its processes are left
// to reap, reporting it done. Members collected by another parent never
// reach Reap, so a counted job can otherwise outlive its group.
func (t *Table) Complete(pgid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, j := range t.jobs {
		if j.Pgid != pgid {
			continue
		}
		t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
		fmt.Fprintf(t.out, "[%d] + Done\t%s\n", i+1, j.Command)
		t.logger.Debug("job gone", "pgid", pgid, "unreaped", j.Members())
		return true
	}
	return false
}

// Clear terminates the group pgid and drops its job.
func (t *Table) Clear(pgid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, j := range t.jobs {
		if j.Pgid != pgid {
			continue
		}
		t.signal(j.Pgid)
		t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
		return nil
	}
	return fmt.Errorf("clear pgid %d: %w", pgid, ErrNoSuchJob)
}

// ClearAll terminates every tracked group and empties the table.
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		t.signal(j.Pgid)
	}
	t.jobs = nil
}

func (t *Table) signal(pgid int) {
	if err := t.signaler.SignalGroup(pgid, unix.SIGTERM); err != nil {
		// the group may already be gone
		t.logger.Debug("signal job", "pgid", pgid, "err", err)
	}
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Pgids returns the tracked process groups in table order.
func (t *Table) Pgids() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	pgids := make([]int, len(t.jobs))
	for i, j := range t.jobs {
		pgids[i] = j.Pgid
	}
	return pgids
}

// Jobs returns copies of the tracked jobs.
func (t *Table) Jobs() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, len(t.jobs))
	for i, j := range t.jobs {
		out[i] = *j
		out[i].pids = j.Pids()
	}
	return out
}

// Dump formats the table, one line per job.
func (t *Table) Dump() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for i, j := range t.jobs {
		leader := "-"
		if p, err := ps.FindProcess(j.Pgid); err == nil && p != nil {
			leader = p.Executable()
		}
		fmt.Fprintf(&b, "[%d] pgid: %d, members: %d, leader: %s, command: %s\n",
			i+1, j.Pgid, j.Members(), leader, j.Command)
	}
	return b.String()
}
