package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Writer is an io.Writer that forwards each complete line to slog.
// Partial lines are buffered until a newline or Flush.
type Writer struct {
	logger *slog.Logger
	level  slog.Level
	msg    string
	args   []any

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewWriter constructs a Writer logging every line as msg at level with the given attributes.
func NewWriter(logger *slog.Logger, level Level, msg string, args ...any) *Writer {
	return &Writer{logger: logger, level: slog.Level(level), msg: msg, args: args}
}

// Write logs the complete lines contained in p.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the unterminated rest for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *Writer) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || w.logger == nil {
		return
	}
	args := append([]any{"line", line}, w.args...)
	w.logger.Log(context.Background(), w.level, w.msg, args...)
}
