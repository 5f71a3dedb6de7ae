// Package sysutil contains small process-wide helpers used during startup:
// zerolog level selection and environment-string coercion shared with the
// config loader.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetLogLevel sets the global zerolog level from a name such as "debug" or
// "warn". Unknown or empty names fall back to info.
func SetLogLevel(name string) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// IsTruthy interprets v as a boolean flag: "1", "true", "yes", "y" and "on"
// count as true regardless of case or surrounding whitespace.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that contains something other than
// whitespace, or "" when none does. The winning value is returned untrimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
