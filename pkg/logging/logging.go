// Package logging configures the process-wide structured logger every
// component logs through. It is the one deliberate exception to the
// "no global mutable state" rule elsewhere in this codebase: a single
// *logrus.Logger is built once at startup and handed to every component by
// the node launcher, the same way core/ledger.go and
// core/consensus.go reach for logrus directly rather than threading a
// logger interface through every call.
//
// The filter syntax mirrors Rust's RUST_LOG: either a bare level ("info", "debug") or a comma-separated list
// of "target=level" pairs with an optional bare default mixed in
// ("info,rpc=debug,producer=trace"). Components log through WithTarget so a
// filter like "rpc=debug" can be granted even while the process default
// stays at info.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Filter holds a parsed RUST_LOG-style directive: a default level plus
// per-target overrides, both consulted by Logger.WithTarget.
type Filter struct {
	Default logrus.Level
	Targets map[string]logrus.Level
}

// ParseFilter parses a RUST_LOG-style string. An empty string yields the
// info level with no overrides. Unparseable segments are skipped rather
// than rejected, since a malformed filter should degrade logging verbosity,
// never crash startup.
func ParseFilter(spec string) Filter {
	f := Filter{Default: logrus.InfoLevel, Targets: make(map[string]logrus.Level)}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			if lvl, err := logrus.ParseLevel(part[eq+1:]); err == nil {
				f.Targets[part[:eq]] = lvl
			}
			continue
		}
		if lvl, err := logrus.ParseLevel(part); err == nil {
			f.Default = lvl
		}
	}
	return f
}

// Logger wraps a *logrus.Logger with the parsed target-level overrides, so
// WithTarget can gate debug/trace noise per-component without callers
// threading their own filter logic.
type Logger struct {
	*logrus.Logger
	filter Filter
}

// New builds a process-wide logger at filterSpec's verbosity, formatted the
// way other services in this codebase format logs: logrus.Fields with a full
// timestamp so log lines stay greppable without a structured-log viewer.
func New(filterSpec string) *Logger {
	filter := ParseFilter(filterSpec)
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// The base logger's own level gate must admit the most verbose level
	// any target override asks for; WithTarget does the finer-grained
	// per-target gating on top of that.
	level := filter.Default
	for _, lvl := range filter.Targets {
		if lvl > level {
			level = lvl
		}
	}
	base.SetLevel(level)

	return &Logger{Logger: base, filter: filter}
}

// WithTarget returns an entry tagged with target, already pre-filtered to
// target's configured level (or the default, if target has no override).
// A caller that only ever logs at Info/Warn/Error need not use this; it
// matters for Debug/Trace call sites that want finer control than the
// process-wide default (e.g. "rpc=debug" without enabling debug everywhere).
func (l *Logger) WithTarget(target string) *logrus.Entry {
	level := l.filter.Default
	if lvl, ok := l.filter.Targets[target]; ok {
		level = lvl
	}
	entry := l.Logger.WithField("target", target)
	if level < l.Logger.GetLevel() {
		// This target is configured quieter than the process default:
		// logrus.Entry has no independent level, so simulate suppression by
		// dropping to a logger view at the target's level via a cloned
		// *logrus.Logger sharing the same output/formatter/hooks.
		clone := *l.Logger
		clone.SetLevel(level)
		return clone.WithField("target", target)
	}
	return entry
}
