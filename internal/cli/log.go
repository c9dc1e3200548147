// Package cli implements the npym command-line interface.
//
// # Commands
//
//   - bridge: resolve a package and write one wheel per resolved node
//   - resolve: print the resolution graph (tree, lock, DOT, SVG) or browse it
//   - range: evaluate an npm range expression
//   - serve: run the simple index and on-demand bridge API
//   - cache: inspect and clear the registry cache
//
// # Configuration
//
// Settings come from npym.toml and NPYM_* variables (see package config);
// command-line flags override both.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"time"

	"github.com/charmbracelet/log"
)

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Emitted 12 wheels (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
