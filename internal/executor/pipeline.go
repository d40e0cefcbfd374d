package executor

import (
	"fmt"
	"os"

	"vsh/internal/builtins"
	"vsh/internal/jobs"
	"vsh/internal/parser"
)

// runPipeline starts every member of g as a direct child in one process
// group led by the first spawned member.
func (o *Orchestrator) runPipeline(g parser.CallGroup, fx Effects) error {
	var stdin *os.File
	if g.Background {
		devNull, err := os.Open(os.DevNull)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
		}
		defer devNull.Close()
		stdin = devNull
	}

	n := len(g.Invocations)
	pgid := 0
	var pids []int
	var prev *os.File
	for i, inv := range g.Invocations {
		opts := Options{
			Fork:       true,
			Placement:  NewGroup,
			Foreground: !g.Background && o.term != nil,
			Stdin:      stdin,
		}
		if pgid != 0 {
			opts.Placement = JoinGroup
			opts.Pgid = pgid
		}
		if i > 0 {
			opts.Stdin = prev
		}

		var r, w *os.File
		if i < n-1 {
			var err error
			r, w, err = os.Pipe()
			if err != nil {
				closeAll(prev)
				return fmt.Errorf("%w: pipe: %v", ErrSpawnFailed, err)
			}
			opts.Stdout = w
		}

		res, err := o.dispatch.Invoke(inv, opts)
		closeAll(w, prev)
		if err != nil {
			closeAll(r)
			return err
		}
		prev = r

		switch {
		case res.ChildPid != 0:
			if pgid == 0 {
				pgid = res.ChildPid
			}
			pids = append(pids, res.ChildPid)
		case res.Effect == builtins.UnknownCommand:
			fx.Apply(res)
		default:
			// builtins in a pipeline run as if in a subshell
			o.logger.Debug("builtin ignored in pipeline", "builtin", inv.Name())
		}
	}

	if len(pids) == 0 {
		if !g.Background && o.term != nil {
			o.term.Reclaim()
		}
		return nil
	}
	cmd := commandText(g)
	if g.Background {
		return o.register(jobs.NewPidJob(pgid, pids, cmd))
	}

	var stopped []int
	for _, pid := range pids {
		ws, err := waitChild(pid)
		if err != nil {
			o.logger.Debug("wait failed", "pid", pid, "err", err)
			continue
		}
		if ws.Stopped() {
			stopped = append(stopped, pid)
		}
	}
	if o.term != nil {
		o.term.Reclaim()
	}
	if len(stopped) > 0 {
		o.registerStopped(pgid, stopped, cmd)
	}
	o.logger.Debug("pipeline done", "pgid", pgid, "members", len(pids))
	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
