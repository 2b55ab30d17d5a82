// Package log is a thin structured-logging wrapper used across the tool.
// Messages carry alternating key/value pairs, e.g.:
//
//	log.Info("mount table updated", "path", path, "target", target)
package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

// Setup configures the process-wide logger. Verbose enables debug output.
func Setup(verbose bool) {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetLevel(logrus.InfoLevel)
	}
}

// Debug logs at debug level with key/value pairs.
func Debug(msg string, kv ...any) {
	std.WithFields(fields(kv)).Debug(msg)
}

// Info logs at info level with key/value pairs.
func Info(msg string, kv ...any) {
	std.WithFields(fields(kv)).Info(msg)
}

// Warn logs at warning level with key/value pairs.
func Warn(msg string, kv ...any) {
	std.WithFields(fields(kv)).Warn(msg)
}

// Error logs at error level with key/value pairs.
func Error(msg string, kv ...any) {
	std.WithFields(fields(kv)).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}
