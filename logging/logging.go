// Package logging defines the Logger used by every fedwalk component.
// The global level and per-package overrides are process wide; each logger
// picks the level matching the package of its caller on every call.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mut           sync.RWMutex
	logLevel      = zapcore.InfoLevel
	packageLevels = make(map[string]zapcore.Level)
)

// ParseLevel parses one of debug, info, warn, error, panic or fatal.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelStr))); err != nil {
		return level, fmt.Errorf("logging: invalid log level %q", levelStr)
	}
	return level, nil
}

// SetLogLevel sets the global log level.
func SetLogLevel(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	mut.Lock()
	logLevel = level
	mut.Unlock()
	return nil
}

// SetPackageLogLevel sets a log level for a package, overriding the global level.
// The package is matched against the directory of the calling source file.
func SetPackageLogLevel(packageName, levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	mut.Lock()
	packageLevels[packageName] = level
	mut.Unlock()
	return nil
}

// ResetLevels restores the default info level and removes package overrides.
func ResetLevels() {
	mut.Lock()
	logLevel = zapcore.InfoLevel
	packageLevels = make(map[string]zapcore.Level)
	mut.Unlock()
}

// Logger is the leveled, printf-style logger passed to components.
// It is a subset of zap.SugaredLogger.
type Logger interface {
	Debug(args ...any)
	Debugf(template string, args ...any)
	Info(args ...any)
	Infof(template string, args ...any)
	Warn(args ...any)
	Warnf(template string, args ...any)
	Error(args ...any)
	Errorf(template string, args ...any)
	// With returns a logger that adds the given key-value pairs to every entry.
	With(keysAndValues ...any) Logger
}

type wrapper struct {
	inner *zap.SugaredLogger
	level zap.AtomicLevel
	mut   *sync.Mutex
}

// refresh must be called directly from the exported logging method so that
// runtime.Caller(2) resolves to the code that emitted the entry.
func (wr *wrapper) refresh() {
	mut.RLock()
	defer mut.RUnlock()

	if len(packageLevels) > 0 {
		if _, file, _, ok := runtime.Caller(2); ok {
			for pkg, level := range packageLevels {
				if strings.Contains(file, "/"+pkg+"/") {
					wr.level.SetLevel(level)
					return
				}
			}
		}
	}
	wr.level.SetLevel(logLevel)
}

func (wr *wrapper) Debug(args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Debug(args...)
}

func (wr *wrapper) Debugf(template string, args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Debugf(template, args...)
}

func (wr *wrapper) Info(args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Info(args...)
}

func (wr *wrapper) Infof(template string, args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Infof(template, args...)
}

func (wr *wrapper) Warn(args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Warn(args...)
}

func (wr *wrapper) Warnf(template string, args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Warnf(template, args...)
}

func (wr *wrapper) Error(args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Error(args...)
}

func (wr *wrapper) Errorf(template string, args ...any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.refresh()
	wr.inner.Errorf(template, args...)
}

func (wr *wrapper) With(keysAndValues ...any) Logger {
	return &wrapper{
		inner: wr.inner.With(keysAndValues...),
		level: wr.level,
		mut:   wr.mut,
	}
}

// New returns a new logger for stderr with the given name.
// Setting FEDWALK_LOG_TYPE=json switches to the JSON encoder.
func New(name string) Logger {
	var config zap.Config
	if strings.ToLower(os.Getenv("FEDWALK_LOG_TYPE")) == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	mut.RLock()
	config.Level.SetLevel(logLevel)
	mut.RUnlock()
	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &wrapper{inner: l.Sugar().Named(name), level: config.Level, mut: new(sync.Mutex)}
}

// NewWithDest returns a new logger for the given destination with the given name.
func NewWithDest(dest io.Writer, name string) Logger {
	mut.RLock()
	atom := zap.NewAtomicLevelAt(logLevel)
	mut.RUnlock()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(dest), atom)
	l := zap.New(core, zap.AddCallerSkip(1))
	return &wrapper{inner: l.Sugar().Named(name), level: atom, mut: new(sync.Mutex)}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &wrapper{inner: zap.NewNop().Sugar(), level: zap.NewAtomicLevel(), mut: new(sync.Mutex)}
}
