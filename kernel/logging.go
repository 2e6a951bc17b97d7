package kernel

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the console-friendly zerolog.Logger the rest of this
// module expects in Config.Logger, grounded on the teacher's terminal
// output conventions (terminal_host.go writes human-readable, timestamped
// lines to the controlling terminal rather than raw unbuffered bytes).
// An *os.File attached to a terminal (such as os.Stdout in an
// interactive shell) gets colorized human output; any other io.Writer (a
// regular file, a network sink) gets newline-delimited JSON suitable for
// shipping off-box.
func NewLogger(w io.Writer) zerolog.Logger {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
