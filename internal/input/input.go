// Package input collects lines from the shell's input one cycle at a time.
// A cycle can be cancelled while it blocks, and bytes read by a cancelled
// cycle are kept for the next one.
package input

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/muesli/cancelreader"
)

// ErrCanceled is reported by a cycle that was cancelled before it
// produced a line.
var ErrCanceled = errors.New("input collection canceled")

// Line is the outcome of one collection cycle. Err is ErrCanceled,
// io.EOF or a read error when no line was collected.
type Line struct {
	Text string
	Err  error
}

type Collector struct {
	in     *os.File
	logger *slog.Logger

	mu      sync.Mutex
	pending []byte
	eof     bool
	cycle   *cycle
}

type cycle struct {
	reader   cancelreader.CancelReader
	canceled atomic.Bool
	done     chan struct{}
}

func New(in *os.File, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{in: in, logger: logger}
}

// Start begins a new cycle, cancelling and waiting out the previous one.
// The returned channel receives exactly one Line.
func (c *Collector) Start() <-chan Line {
	c.Cancel()

	out := make(chan Line, 1)
	reader, err := cancelreader.NewReader(c.in)
	if err != nil {
		// regular files cannot be polled; their reads never block
		c.logger.Debug("input is not cancelable", "err", err)
		reader = &plainReader{r: c.in}
	}
	cy := &cycle{reader: reader, done: make(chan struct{})}

	c.mu.Lock()
	c.cycle = cy
	c.mu.Unlock()

	go c.run(cy, out)
	return out
}

// Cancel ends the running cycle, if any, and waits for it to stop reading.
func (c *Collector) Cancel() {
	c.mu.Lock()
	cy := c.cycle
	c.cycle = nil
	c.mu.Unlock()

	if cy == nil {
		return
	}
	cy.canceled.Store(true)
	cy.reader.Cancel()
	<-cy.done
}

func (c *Collector) run(cy *cycle, out chan<- Line) {
	defer close(cy.done)
	defer cy.reader.Close()

	buf := make([]byte, 4096)
	for {
		if line, ok := c.takeLine(); ok {
			if cy.canceled.Load() {
				out <- Line{Err: ErrCanceled}
			} else {
				out <- Line{Text: line}
			}
			return
		}
		if cy.canceled.Load() {
			out <- Line{Err: ErrCanceled}
			return
		}
		if c.atEOF() {
			out <- c.flush()
			return
		}

		n, err := cy.reader.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.pending = append(c.pending, buf[:n]...)
			c.mu.Unlock()
		}
		switch {
		case err == nil:
		case errors.Is(err, cancelreader.ErrCanceled):
			cy.canceled.Store(true)
		case errors.Is(err, io.EOF):
			c.mu.Lock()
			c.eof = true
			c.mu.Unlock()
		default:
			out <- Line{Err: err}
			return
		}
	}
}

// takeLine removes the first complete line from the pending bytes.
func (c *Collector) takeLine() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := bytes.IndexByte(c.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := string(c.pending[:i])
	c.pending = c.pending[i+1:]
	return line, true
}

func (c *Collector) atEOF() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eof
}

// flush returns an unterminated last line, then io.EOF on later cycles.
func (c *Collector) flush() Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Line{Err: io.EOF}
	}
	line := string(c.pending)
	c.pending = nil
	return Line{Text: line}
}

type plainReader struct {
	r        io.Reader
	canceled atomic.Bool
}

func (p *plainReader) Read(b []byte) (int, error) {
	if p.canceled.Load() {
		return 0, cancelreader.ErrCanceled
	}
	return p.r.Read(b)
}

func (p *plainReader) Cancel() bool {
	p.canceled.Store(true)
	return false
}

func (p *plainReader) Close() error { return nil }
