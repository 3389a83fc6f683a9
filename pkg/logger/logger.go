package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Level represents logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns string representation of Level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG", "trace", "TRACE":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Targets used by the engine and the host application.
const (
	TargetEngine = "dnp3"
	TargetApp    = "app"
	TargetHTTP   = "http"
)

// Event is a single formatted log line delivered to sinks
type Event struct {
	Time    time.Time
	Target  string
	Level   Level
	Message string
}

// Sink receives every event emitted by a DefaultLogger, independent of its level filter.
// Handle is called on the logging goroutine and must not block.
type Sink interface {
	Handle(ev Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ev Event)

// Handle calls f(ev)
func (f SinkFunc) Handle(ev Event) {
	f(ev)
}

// Logger is the interface for logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level Level)
}

// sinkSet is shared between loggers derived with With
type sinkSet struct {
	mu    sync.RWMutex
	sinks []Sink
}

func (s *sinkSet) add(sink Sink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

func (s *sinkSet) emit(ev Event) {
	s.mu.RLock()
	sinks := s.sinks
	s.mu.RUnlock()
	for _, sink := range sinks {
		sink.Handle(ev)
	}
}

// DefaultLogger writes to stdout through the standard log package and fans every
// event out to its sinks
type DefaultLogger struct {
	level  *levelVar
	target string
	logger *log.Logger
	sinks  *sinkSet
}

type levelVar struct {
	mu    sync.RWMutex
	level Level
}

func (v *levelVar) get() Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

func (v *levelVar) set(l Level) {
	v.mu.Lock()
	v.level = l
	v.mu.Unlock()
}

// NewDefaultLogger creates a new default logger for the engine target
func NewDefaultLogger(level Level) *DefaultLogger {
	return New(TargetEngine, level)
}

// New creates a logger for target with the given console level and sinks
func New(target string, level Level, sinks ...Sink) *DefaultLogger {
	l := &DefaultLogger{
		level:  &levelVar{level: level},
		target: target,
		logger: log.New(os.Stdout, "", log.LstdFlags),
		sinks:  &sinkSet{},
	}
	for _, s := range sinks {
		l.sinks.add(s)
	}
	return l
}

// With returns a logger for another target sharing level, output and sinks
func (l *DefaultLogger) With(target string) *DefaultLogger {
	return &DefaultLogger{
		level:  l.level,
		target: target,
		logger: l.logger,
		sinks:  l.sinks,
	}
}

// AddSink registers a sink on this logger and every logger derived from it
func (l *DefaultLogger) AddSink(s Sink) {
	l.sinks.add(s)
}

// Target returns the target tag of this logger
func (l *DefaultLogger) Target() string {
	return l.target
}

func (l *DefaultLogger) log(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.level.get() <= level {
		l.logger.Printf("[%s] %s: %s", level, l.target, msg)
	}
	l.sinks.emit(Event{Time: time.Now(), Target: l.target, Level: level, Message: msg})
}

// Debug logs debug message
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs info message
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs warning message
func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs error message
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// SetLevel sets the console logging level
func (l *DefaultLogger) SetLevel(level Level) {
	l.level.set(level)
}

// NoOpLogger is a logger that doesn't log anything
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that doesn't log
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing
func (l *NoOpLogger) Debug(format string, args ...interface{}) {}

// Info does nothing
func (l *NoOpLogger) Info(format string, args ...interface{}) {}

// Warn does nothing
func (l *NoOpLogger) Warn(format string, args ...interface{}) {}

// Error does nothing
func (l *NoOpLogger) Error(format string, args ...interface{}) {}

// SetLevel does nothing
func (l *NoOpLogger) SetLevel(level Level) {}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewDefaultLogger(LevelInfo)
)

// SetDefault sets the default logger
func SetDefault(logger Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetDefault returns the default logger
func GetDefault() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// OrNoOp returns log, or a NoOpLogger when log is nil
func OrNoOp(log Logger) Logger {
	if log == nil {
		return NewNoOpLogger()
	}
	return log
}
