// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Testing is the subset of testing.TB needed to log to the unit test log.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
}

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return log.NewLogger(log.NewTerminalHandlerWithLevel(&testWriter{t: t}, level, false))
}

// testWriter forwards complete log lines to t.Logf.
type testWriter struct {
	t   Testing
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.t.Helper()
		w.t.Logf("%s", strings.TrimRight(line, "\n"))
	}
	return len(p), nil
}
