// Package monitoring owns the process-wide structured logger.
//
// Stages log through L() for structured fields. Logf serves call sites that
// only need a formatted info line, such as project initialization.
package monitoring

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger built by Init.
type Options struct {
	Verbose bool // debug level
	JSON    bool // JSON encoding instead of console
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Logf is the package-level diagnostic logger. It writes through the zap
// logger at info level and may be replaced by SetLogf. Tests can mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	L().Sugar().Infof(format, v...)
}

// Init builds the global logger. The returned func flushes buffered entries.
func Init(opts Options) (func(), error) {
	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = !opts.Verbose

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l)
	return func() { _ = l.Sync() }, nil
}

// L returns the global logger. It is never nil.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the global logger. Passing nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetLogf replaces the Logf shim. Passing nil will set a no-op logger.
func SetLogf(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
