// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package trace

import (
	"io"

	"github.com/charmbracelet/log"
)

// Console is a Sink that renders events as structured log lines.
type Console struct {
	logger *log.Logger
}

// NewConsole builds a console sink writing to w. With debug set, events
// log at debug level visibility.
func NewConsole(w io.Writer, debug bool) *Console {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return &Console{logger: logger}
}

// Emit logs the event name with cycle and attributes as key-value pairs.
func (c *Console) Emit(ev Event) {
	keyvals := make([]any, 0, 2*len(ev.Attrs)+2)
	keyvals = append(keyvals, "cycle", ev.Cycle)
	for _, k := range sortedKeys(ev.Attrs) {
		keyvals = append(keyvals, k, ev.Attrs[k])
	}
	c.logger.Info(ev.Name, keyvals...)
}
