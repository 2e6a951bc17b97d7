// Package debugconsole is a raw-mode stdin console for inspecting a
// running kernel, grounded on terminal_host.go's raw-mode read loop and
// debug_monitor.go's line-command dispatch table.
package debugconsole

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.design/x/clipboard"
	"golang.org/x/term"

	"github.com/coreflow-os/coreflow/kernel"
)

// Snapshot is one row of the thread table dump command.
type Snapshot struct {
	ID       kernel.ThreadID
	State    kernel.State
	Priority uint8
}

// Console reads commands a line at a time from stdin in raw mode and
// dispatches them against a kernel.Kernel. Only meant for interactive use
// — never constructed in tests.
type Console struct {
	k *kernel.Kernel

	fd           int
	oldTermState *term.State
	nonblockSet  bool

	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	clipboardOnce sync.Once
	clipboardOK   bool

	out *strings.Builder
	mu  sync.Mutex

	threadCount int
}

// New constructs a console bound to k. threadCount is the number of
// thread slots dump should report on (typically Config.MaxThreads).
func New(k *kernel.Kernel, threadCount int) *Console {
	return &Console{
		k:           k,
		threadCount: threadCount,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		out:         &strings.Builder{},
	}
}

// Start puts stdin into raw mode and begins reading commands in a
// goroutine. Call Stop to restore the terminal.
func (c *Console) Start() {
	c.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "debugconsole: failed to set raw mode: %v\n", err)
		close(c.done)
		return
	}
	c.oldTermState = oldState

	if err := syscall.SetNonblock(c.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "debugconsole: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
		close(c.done)
		return
	}
	c.nonblockSet = true

	go c.readLoop()
}

func (c *Console) readLoop() {
	defer close(c.done)
	buf := make([]byte, 1)
	var line []byte

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		n, err := syscall.Read(c.fd, buf)
		if n > 0 {
			b := buf[0]
			switch b {
			case '\r', '\n':
				c.dispatch(string(line))
				line = line[:0]
			case 0x7F, 0x08:
				if len(line) > 0 {
					line = line[:len(line)-1]
				}
			default:
				line = append(line, b)
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
	}
}

// Stop terminates the read loop and restores the terminal.
func (c *Console) Stop() {
	c.stopped.Do(func() { close(c.stopCh) })
	<-c.done
	if c.nonblockSet {
		_ = syscall.SetNonblock(c.fd, false)
	}
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
	}
}

// dispatch handles one command line. Recognized commands:
//
//	dump       copy a thread-table snapshot to the system clipboard
//	state N    print thread N's lifecycle state
func (c *Console) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "dump":
		c.dumpToClipboard()
	case "state":
		if len(fields) < 2 {
			c.printf("usage: state <tid>\n")
			return
		}
		c.printState(fields[1])
	default:
		c.printf("unknown command: %s\n", fields[0])
	}
}

func (c *Console) printState(tidStr string) {
	var tid int
	if _, err := fmt.Sscanf(tidStr, "%d", &tid); err != nil {
		c.printf("bad thread id %q\n", tidStr)
		return
	}
	st, err := c.k.State(kernel.ThreadID(tid))
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	c.printf("thread %d: %s\n", tid, st)
}

// Snapshot builds the current thread-table view.
func (c *Console) Snapshot() []Snapshot {
	rows := make([]Snapshot, 0, c.threadCount)
	for i := 0; i < c.threadCount; i++ {
		st, err := c.k.State(kernel.ThreadID(i))
		if err != nil {
			continue
		}
		rows = append(rows, Snapshot{ID: kernel.ThreadID(i), State: st})
	}
	return rows
}

// dumpToClipboard serializes a Snapshot to the system clipboard, mirroring
// video_backend_ebiten.go's lazily-initialized clipboard.Init() guard.
func (c *Console) dumpToClipboard() {
	c.clipboardOnce.Do(func() {
		c.clipboardOK = clipboard.Init() == nil
	})
	if !c.clipboardOK {
		c.printf("clipboard unavailable on this host\n")
		return
	}
	var b strings.Builder
	for _, row := range c.Snapshot() {
		fmt.Fprintf(&b, "tid=%d state=%s\n", row.ID, row.State)
	}
	clipboard.Write(clipboard.FmtText, []byte(b.String()))
	c.printf("thread table copied to clipboard (%d rows)\n", len(c.Snapshot()))
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
	fmt.Fprint(os.Stdout, c.out.String())
	c.out.Reset()
}
