// Package cli implements the pencilgraph command-line interface.
//
// Commands load node graph documents (JSON, TOML or YAML), inspect them and
// export their live nodes. The CLI is built with cobra; logging goes through
// charmbracelet/log and user-facing output through the lipgloss styles in
// ui.go.
//
// # Commands
//
//   - export: flatten documents into renderer records
//   - resolve, sockets: inspect one node through the override layers
//   - lines: list, add, reorder (optionally interactively) the Lines
//   - merge: merge one graph into another
//   - dot: draw graphs with Graphviz
//   - render: hand records to the external renderer
//   - serve: expose an editing session over HTTP
//   - cache, session, config: manage local state
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so that helpers can log without the CLI.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Exported scene.json (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the attached logger, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
