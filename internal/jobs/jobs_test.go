package jobs

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

type recordingSignaler struct {
	groups []int
}

func (r *recordingSignaler) SignalGroup(pgid int, sig unix.Signal) error {
	if sig != unix.SIGTERM {
		return errors.New("unexpected signal")
	}
	r.groups = append(r.groups, pgid)
	return nil
}

func newTestTable() (*Table, *bytes.Buffer, *recordingSignaler) {
	var out bytes.Buffer
	sig := &recordingSignaler{}
	return NewTable(Config{Out: &out, Signaler: sig}), &out, sig
}

func TestRegisterAndReapPidJob(t *testing.T) {
	table, out, _ := newTestTable()
	if err := table.Register(NewPidJob(100, []int{100}, "sleep 5")); err != nil {
		t.Fatal(err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 job, got %d", table.Len())
	}
	if got := table.Jobs()[0].Members(); got != 1 {
		t.Errorf("expected 1 member, got %d", got)
	}

	out.Reset()
	if !table.Reap(100, 100) {
		t.Fatal("expected pid 100 to be reaped")
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d jobs", table.Len())
	}
	if got := out.String(); !strings.Contains(got, "[1] 100") || !strings.Contains(got, "[1] + Done") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestReapKeepsJobUntilEmpty(t *testing.T) {
	table, out, _ := newTestTable()
	table.Register(NewPidJob(200, []int{200, 201, 202}, "a | b | c"))

	table.Reap(201, 200)
	table.Reap(200, 200)
	if table.Len() != 1 {
		t.Fatalf("expected job to survive partial reaping")
	}
	if got := table.Jobs()[0].Members(); got != 1 {
		t.Errorf("expected 1 member left, got %d", got)
	}
	if strings.Contains(out.String(), "Done") {
		t.Error("job reported done too early")
	}
	table.Reap(202, 200)
	if table.Len() != 0 {
		t.Errorf("expected empty table")
	}
}

func TestReapCountedJob(t *testing.T) {
	table, _, _ := newTestTable()
	table.Register(NewCountedJob(300, 2, "a | b"))

	if table.Reap(999, 301) {
		t.Error("pid of another group should not match")
	}
	if !table.Reap(301, 300) || !table.Reap(302, 300) {
		t.Fatal("expected both members to be reaped")
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table")
	}
	if table.Reap(303, 300) {
		t.Error("removed job should not match")
	}
}

func TestReapPositionIsOneBased(t *testing.T) {
	table, out, _ := newTestTable()
	table.Register(NewPidJob(10, []int{10}, "first"))
	table.Register(NewPidJob(20, []int{20}, "second"))

	out.Reset()
	table.Reap(20, 20)
	if got := out.String(); !strings.HasPrefix(got, "[2] 20\n[2] + Done") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestReapUnknownPid(t *testing.T) {
	table, _, _ := newTestTable()
	table.Register(NewPidJob(10, []int{10}, "x"))
	if table.Reap(11, 11) {
		t.Error("unexpected match")
	}
}

func TestRegisterDuplicatePgid(t *testing.T) {
	table, _, _ := newTestTable()
	table.Register(NewPidJob(10, []int{10}, "x"))
	err := table.Register(NewPidJob(10, []int{11}, "y"))
	if !errors.Is(err, ErrDuplicatePgid) {
		t.Fatalf("expected ErrDuplicatePgid, got %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 job, got %d", table.Len())
	}
}

func TestClearAllEmptyTable(t *testing.T) {
	table, _, sig := newTestTable()
	table.ClearAll()
	table.ClearAll()
	if len(sig.groups) != 0 {
		t.Errorf("expected no signals, got %v", sig.groups)
	}
}

func TestClearAll(t *testing.T) {
	table, _, sig := newTestTable()
	table.Register(NewPidJob(10, []int{10}, "x"))
	table.Register(NewCountedJob(20, 3, "y"))
	table.ClearAll()
	if table.Len() != 0 {
		t.Errorf("expected empty table")
	}
	if len(sig.groups) != 2 || sig.groups[0] != 10 || sig.groups[1] != 20 {
		t.Errorf("expected groups [10 20] signalled, got %v", sig.groups)
	}
}

func TestClearOne(t *testing.T) {
	table, _, sig := newTestTable()
	table.Register(NewPidJob(10, []int{10}, "x"))
	table.Register(NewPidJob(20, []int{20}, "y"))
	if err := table.Clear(20); err != nil {
		t.Fatal(err)
	}
	if got := table.Pgids(); len(got) != 1 || got[0] != 10 {
		t.Errorf("expected only pgid 10 left, got %v", got)
	}
	if len(sig.groups) != 1 || sig.groups[0] != 20 {
		t.Errorf("expected only group 20 signalled, got %v", sig.groups)
	}
	if err := table.Clear(30); !errors.Is(err, ErrNoSuchJob) {
		t.Errorf("expected ErrNoSuchJob, got %v", err)
	}
}

func TestDump(t *testing.T) {
	table, _, _ := newTestTable()
	table.Register(NewPidJob(10, []int{10, 11}, "a | b"))
	table.Register(NewCountedJob(20, 3, "c | d | e"))
	dump := table.Dump()
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", dump)
	}
	if !strings.Contains(lines[0], "pgid: 10, members: 2") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "pgid: 20, members: 3") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestCompleteDropsCountedJob(t *testing.T) {
	table, out, _ := newTestTable()
	table.Register(NewCountedJob(300, 3, "a | b | c"))
	table.Reap(300, 300)

	if !table.Complete(300) {
		t.Fatal("expected job to complete")
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d", table.Len())
	}
	if !strings.HasSuffix(out.String(), "[1] + Done\ta | b | c\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if table.Complete(300) {
		t.Error("second Complete should report no job")
	}
}
