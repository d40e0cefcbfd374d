package executor

import (
	"log/slog"
	"os"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"vsh/internal/jobs"
)

// Reaper collects terminated background processes and reports them to the
// job table. It must run on the goroutine that spawns processes.
type Reaper struct {
	table     *jobs.Table
	strays    bool
	abandoned map[int]bool
	logger    *slog.Logger
}

func NewReaper(table *jobs.Table, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reaper{table: table, abandoned: make(map[int]bool), logger: logger}
}

// Abandon keeps collecting the members of groups that were dropped from
// the job table.
func (r *Reaper) Abandon(pgids []int) {
	for _, pgid := range pgids {
		r.abandoned[pgid] = true
	}
}

// Reap drains every terminated member of a tracked job without blocking.
func (r *Reaper) Reap() {
	for _, pgid := range r.table.Pgids() {
		if !r.drain(pgid, func(pid int) { r.table.Reap(pid, pgid) }) {
			r.table.Complete(pgid)
		}
	}
	for pgid := range r.abandoned {
		if !r.drain(pgid, nil) {
			delete(r.abandoned, pgid)
		}
	}
	if r.strays {
		r.reapStrays()
	}
}

// drain waits on every terminated member of pgid. It returns false once
// the group has no children left.
func (r *Reaper) drain(pgid int, done func(pid int)) bool {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-pgid, &ws, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return false
		case pid <= 0:
			return true
		}
		r.logger.Debug("reaped", "pid", pid, "pgid", pgid, "status", ws.ExitStatus())
		if done != nil {
			done(pid)
		}
	}
}

// reapStrays collects orphans reparented to the shell that belong to no
// tracked job.
func (r *Reaper) reapStrays() {
	procs, err := ps.Processes()
	if err != nil {
		r.logger.Debug("process list unavailable", "err", err)
		return
	}
	tracked := make(map[int]bool)
	for _, pgid := range r.table.Pgids() {
		tracked[pgid] = true
	}
	self := os.Getpid()
	for _, p := range procs {
		if p.PPid() != self {
			continue
		}
		pgid, err := unix.Getpgid(p.Pid())
		if err != nil || tracked[pgid] {
			continue
		}
		var ws unix.WaitStatus
		if pid, _ := unix.Wait4(p.Pid(), &ws, unix.WNOHANG, nil); pid > 0 {
			r.logger.Debug("reaped stray", "pid", pid, "pgid", pgid, "executable", p.Executable())
		}
	}
}
