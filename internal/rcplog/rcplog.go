// Package rcplog provides a pterm-backed debug logger that callers can
// inject into an rcp.Session. Package rcp does not import it: a Session
// constructed without a Logger uses rcp's own no-op logger.
package rcplog

import (
	"fmt"
	"sync/atomic"

	"github.com/pterm/pterm"
)

// Logger is the narrow debug-logging capability a Session accepts. The
// debug logger is an external collaborator (it is not part of the
// protocol core); rcp.Logger declares the same method set, so rcp never
// depends on pterm directly.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nextColor is the process-wide counter used to give each logger
// instance's lines a distinct color. It lives behind an atomic and is
// private to this package, not visible process-wide.
var nextColor atomic.Uint32

var palette = []pterm.Color{
	pterm.FgCyan, pterm.FgMagenta, pterm.FgYellow, pterm.FgGreen,
	pterm.FgBlue, pterm.FgLightRed,
}

// PtermLogger backs Logger with pterm.DefaultLogger, following the
// leveled-logging wrapper style of 1ureka-roj1/internal/util/log.go.
type PtermLogger struct {
	prefix string
	color  pterm.Color
}

// New returns a PtermLogger tagging every line with prefix and a color
// assigned round-robin from the palette.
func New(prefix string) *PtermLogger {
	c := palette[int(nextColor.Add(1)-1)%len(palette)]
	return &PtermLogger{prefix: prefix, color: c}
}

func (l *PtermLogger) tag(msg string) string {
	return l.color.Sprintf("[%s] %s", l.prefix, msg)
}

func (l *PtermLogger) Debugf(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(l.tag(fmt.Sprintf(format, args...)))
}

func (l *PtermLogger) Warnf(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(l.tag(fmt.Sprintf(format, args...)))
}

func (l *PtermLogger) Errorf(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(l.tag(fmt.Sprintf(format, args...)))
}

// noop discards everything.
type noop struct{}

func (noop) Debugf(string, ...interface{}) {}
func (noop) Warnf(string, ...interface{})  {}
func (noop) Errorf(string, ...interface{}) {}

// Noop returns a Logger that discards every message.
func Noop() Logger { return noop{} }
