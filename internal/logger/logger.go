// Package logger provides leveled logging in text or JSON-lines format.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

// ParseLevel converts a level name into a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides leveled logging.
type Logger struct {
	mu     sync.Mutex
	level  Level
	json   bool
	out    io.Writer
	logger *log.Logger
}

var defaultLogger *Logger

// Init initializes the default logger writing to stderr.
func Init(level string, format string) {
	InitWithWriter(level, format, os.Stderr)
}

// InitWithWriter initializes the default logger with an explicit destination.
func InitWithWriter(level string, format string, w io.Writer) {
	l := &Logger{
		level: ParseLevel(level),
		json:  strings.ToLower(format) == "json",
		out:   w,
	}
	if !l.json {
		l.logger = log.New(w, "", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	}
	defaultLogger = l
}

type jsonLine struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func (l *Logger) output(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.json {
		_ = l.logger.Output(4, "["+levelNames[level]+"] "+msg)
		return
	}

	line, err := json.Marshal(jsonLine{
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
		Level: strings.ToLower(levelNames[level]),
		Msg:   msg,
	})
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}

func logAt(level Level, format string, args ...interface{}) {
	if defaultLogger != nil && defaultLogger.level <= level {
		defaultLogger.output(level, format, args...)
	}
}

func Debug(format string, args ...interface{}) {
	logAt(DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	logAt(InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	logAt(WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	logAt(ErrorLevel, format, args...)
}

// Fatal logs regardless of level and exits the process.
func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.output(ErrorLevel, "FATAL: "+format, args...)
	} else {
		fmt.Fprintf(os.Stderr, "[FATAL] "+format+"\n", args...)
	}
	os.Exit(1)
}
