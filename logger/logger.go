// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the shared logging interface used across the
// library. The filter engine itself never logs; everything that talks to a
// backend takes a Logger.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const rfc3339Usec = "2006-01-02T15:04:05.000000Z07:00"

// Ensure implementations satisfy the interface.
var (
	_ Logger = &nopLogger{}
	_ Logger = &standardLogger{}
	_ Logger = &CaptureLogger{}
)

// Logger represents an interface for a shared logger.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a new Logger with the same configuration as
	// this one, but all logs will have the given prefix.
	WithPrefix(prefix string) Logger
}

const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func levelPrefix(level int) string {
	return [...]string{"ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

// StderrLogger is the default logger for code that is not handed one.
var StderrLogger = NewStandardLogger(os.Stderr)

// NopLogger represents a Logger that doesn't do anything.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...interface{}) {}
func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}

func (n *nopLogger) WithPrefix(prefix string) Logger {
	return n
}

// standardLogger is a basic implementation of Logger based on log.Logger.
type standardLogger struct {
	logger    *log.Logger
	verbosity int
	prefix    string
	w         io.Writer
}

// formatLog writes in UTC with constant width and microsecond resolution.
type formatLog struct {
	w io.Writer
}

func (fl formatLog) Write(p []byte) (int, error) {
	return fmt.Fprintf(fl.w, "%v %v", time.Now().UTC().Format(rfc3339Usec), string(p))
}

func newStandardLogger(w io.Writer, verbosity int, prefix string) *standardLogger {
	l := log.New(w, prefix, 0)
	l.SetOutput(formatLog{w: w})
	return &standardLogger{
		logger:    l,
		verbosity: verbosity,
		prefix:    prefix,
		w:         w,
	}
}

// NewStandardLogger returns a Logger which logs at info level and above.
func NewStandardLogger(w io.Writer) *standardLogger {
	return newStandardLogger(w, LevelInfo, "")
}

// NewVerboseLogger returns a Logger which also logs debug messages.
func NewVerboseLogger(w io.Writer) *standardLogger {
	return newStandardLogger(w, LevelDebug, "")
}

func (s *standardLogger) printf(level int, format string, v ...interface{}) {
	if level > s.verbosity {
		return
	}
	s.logger.Printf(levelPrefix(level)+format, v...)
}

func (s *standardLogger) Printf(format string, v ...interface{}) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Debugf(format string, v ...interface{}) {
	s.printf(LevelDebug, format, v...)
}

func (s *standardLogger) Infof(format string, v ...interface{}) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Warnf(format string, v ...interface{}) {
	s.printf(LevelWarn, format, v...)
}

func (s *standardLogger) Errorf(format string, v ...interface{}) {
	s.printf(LevelError, format, v...)
}

func (s *standardLogger) WithPrefix(prefix string) Logger {
	return newStandardLogger(s.w, s.verbosity, prefix)
}

// Logfer is a thing that has only a Logf() method, like for instance,
// testing.T or testing.B.
type Logfer interface {
	Logf(format string, v ...interface{})
}

// LogfLogger wraps something that has a Logf method and makes it act like
// our Logger, so tests can pass in their testing.T directly.
type LogfLogger struct {
	wrapped Logfer
}

func NewLogfLogger(l Logfer) *LogfLogger {
	return &LogfLogger{wrapped: l}
}

func (ll *LogfLogger) Printf(format string, v ...interface{}) {
	ll.wrapped.Logf(format, v...)
}

func (ll *LogfLogger) Debugf(format string, v ...interface{}) {
	ll.wrapped.Logf(format, v...)
}

func (ll *LogfLogger) Infof(format string, v ...interface{}) {
	ll.wrapped.Logf(format, v...)
}

func (ll *LogfLogger) Warnf(format string, v ...interface{}) {
	ll.wrapped.Logf(format, v...)
}

func (ll *LogfLogger) Errorf(format string, v ...interface{}) {
	ll.wrapped.Logf(format, v...)
}

func (ll *LogfLogger) WithPrefix(prefix string) Logger {
	return ll
}

// CaptureLogger is a test Logger that records every message so tests can
// assert on emitted warnings.
type CaptureLogger struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	messages []string
}

func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

func (c *CaptureLogger) record(level int, format string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := levelPrefix(level) + fmt.Sprintf(format, v...)
	c.messages = append(c.messages, s)
	c.buf.WriteString(s + "\n")
}

func (c *CaptureLogger) Printf(format string, v ...interface{}) {
	c.record(LevelInfo, format, v...)
}

func (c *CaptureLogger) Debugf(format string, v ...interface{}) {
	c.record(LevelDebug, format, v...)
}

func (c *CaptureLogger) Infof(format string, v ...interface{}) {
	c.record(LevelInfo, format, v...)
}

func (c *CaptureLogger) Warnf(format string, v ...interface{}) {
	c.record(LevelWarn, format, v...)
}

func (c *CaptureLogger) Errorf(format string, v ...interface{}) {
	c.record(LevelError, format, v...)
}

func (c *CaptureLogger) WithPrefix(prefix string) Logger {
	return c
}

// Messages returns a copy of everything logged so far.
func (c *CaptureLogger) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	copy(out, c.messages)
	return out
}

// Contains reports whether any recorded message contains substr.
func (c *CaptureLogger) Contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
