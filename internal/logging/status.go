package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// StatusLine renders the output of a long running external command.
//
// With debug logging enabled every line becomes its own debug record. Otherwise
// lines overwrite each other on a terminal, and are written one per row when the
// writer is not a terminal.
type StatusLine struct {
	writer   io.Writer
	logger   *slog.Logger
	terminal bool
	state    *cliState

	mu      sync.Mutex
	lastLen int
	written bool
}

// NewStatusLine creates a status sink writing to w. Records emitted through logger
// while a line is pending start on a fresh row when logger uses the CLI handler.
func NewStatusLine(w io.Writer, logger *slog.Logger) *StatusLine {
	logger = Ensure(logger)
	state := &cliState{}
	if h, ok := logger.Handler().(*cliHandler); ok && h.writer == w {
		state = h.state
	}
	return &StatusLine{
		writer:   w,
		logger:   logger,
		terminal: IsTerminal(w),
		state:    state,
	}
}

func (s *StatusLine) verbose() bool {
	return s.logger.Enabled(context.Background(), slog.LevelDebug)
}

// Line records one line of command output.
func (s *StatusLine) Line(line string) {
	line = strings.TrimRight(line, "\r\n")
	if s.verbose() {
		s.logger.Debug(line)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if !s.terminal {
		_, _ = io.WriteString(s.writer, line+"\n")
		return
	}

	pad := ""
	if s.lastLen > len(line) {
		pad = strings.Repeat(" ", s.lastLen-len(line))
	}
	s.lastLen = len(line)
	s.written = true
	s.state.pendingCR = true
	_, _ = io.WriteString(s.writer, "\r"+line+pad)
}

// Done terminates the current status row.
func (s *StatusLine) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.written && s.state.pendingCR {
		_, _ = io.WriteString(s.writer, "\n")
	}
	s.state.pendingCR = false
	s.written = false
	s.lastLen = 0
}
