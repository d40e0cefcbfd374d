package executor

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is the controlling terminal of a shell that owns it. Foreground
// jobs get the terminal for as long as the shell waits on them.
type Terminal struct {
	fd   int
	pgid int
}

// NewTerminal returns nil unless f is a terminal whose foreground group
// is the caller's process group.
func NewTerminal(f *os.File) *Terminal {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fg, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || fg != unix.Getpgrp() {
		return nil
	}
	return &Terminal{fd: fd, pgid: fg}
}

// HandTo makes pgid the foreground group.
func (t *Terminal) HandTo(pgid int) {
	setForeground(t.fd, pgid)
}

// Reclaim gives the terminal back to the shell. The shell is a
// background group at this point, so SIGTTOU is ignored for the call.
func (t *Terminal) Reclaim() {
	signal.Ignore(unix.SIGTTOU)
	setForeground(t.fd, t.pgid)
	signal.Reset(unix.SIGTTOU)
}

// ctty returns the descriptor the child uses to claim the terminal. The
// claim runs before the child's descriptors are renumbered, so it is the
// shell's own descriptor, and only valid when one of the child's streams
// is this terminal.
func (t *Terminal) ctty(streams ...any) (int, bool) {
	var self unix.Stat_t
	if err := unix.Fstat(t.fd, &self); err != nil {
		return 0, false
	}
	for _, s := range streams {
		f, ok := s.(*os.File)
		if !ok || f == nil {
			continue
		}
		var st unix.Stat_t
		if err := unix.Fstat(int(f.Fd()), &st); err != nil {
			continue
		}
		if st.Dev == self.Dev && st.Ino == self.Ino && st.Rdev == self.Rdev {
			return t.fd, true
		}
	}
	return 0, false
}

func setForeground(fd, pgid int) {
	_ = unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}
