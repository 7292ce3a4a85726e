package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	mu          sync.Mutex
	logInstance *Logger
	levelNames  = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}
	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
		FATAL: "\033[35m",
	}
	resetColor = "\033[0m"
)

type Logger struct {
	*log.Logger
	wmu      sync.Mutex
	level    LogLevel
	console  io.Writer
	color    bool
	file     *os.File
	filename string
}

// Options configures Init. Prefix names the daily log file, e.g. "bot"
// produces logs/bot_2006-01-02.log.
type Options struct {
	Level   string
	ToFile  bool
	Dir     string
	Prefix  string
	Console io.Writer
	NoColor bool
}

func Init(opts Options) error {
	level := ParseLevel(opts.Level)

	var logFile *os.File
	var filename string

	if opts.ToFile {
		dir := opts.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}

		prefix := opts.Prefix
		if prefix == "" {
			prefix = "aidd"
		}
		filename = filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("2006-01-02")))

		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = file
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		Logger:   log.New(io.Discard, "", 0),
		level:    level,
		console:  console,
		color:    !opts.NoColor,
		file:     logFile,
		filename: filename,
	}
	if logFile != nil {
		l.Logger.SetOutput(logFile)
	}

	mu.Lock()
	old := logInstance
	logInstance = l
	mu.Unlock()

	if old != nil && old.file != nil {
		old.file.Close()
	}

	Info("Logger initialized", "level", levelNames[level], "file", filename)
	return nil
}

// SetOutput routes console output to w without colors. Mostly for tests.
func SetOutput(w io.Writer, level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	logInstance = &Logger{
		Logger:  log.New(io.Discard, "", 0),
		level:   level,
		console: w,
	}
}

func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) log(level LogLevel, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	} else {
		file = filepath.Base(file)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	levelName := levelNames[level]

	var fieldsStr string
	if len(fields) > 0 {
		var fieldParts []string
		for i := 0; i < len(fields); i += 2 {
			if i+1 < len(fields) {
				fieldParts = append(fieldParts, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
			} else {
				fieldParts = append(fieldParts, fmt.Sprintf("%v", fields[i]))
			}
		}
		fieldsStr = " [" + strings.Join(fieldParts, " ") + "]"
	}

	plain := fmt.Sprintf("%-5s %s %s:%d %s%s",
		levelName,
		timestamp,
		file, line,
		msg, fieldsStr)

	l.wmu.Lock()
	defer l.wmu.Unlock()

	if l.color {
		fmt.Fprintf(l.console, "%s%-5s%s %s %s:%d %s%s\n",
			levelColors[level], levelName, resetColor,
			timestamp,
			file, line,
			msg, fieldsStr)
	} else {
		fmt.Fprintln(l.console, plain)
	}

	if l.file != nil {
		l.Logger.Println(plain)
	}
}

func current() *Logger {
	mu.Lock()
	defer mu.Unlock()
	return logInstance
}

func Debug(msg string, fields ...interface{}) {
	if l := current(); l != nil {
		l.log(DEBUG, msg, fields...)
	}
}

func Info(msg string, fields ...interface{}) {
	if l := current(); l != nil {
		l.log(INFO, msg, fields...)
	}
}

func Warn(msg string, fields ...interface{}) {
	if l := current(); l != nil {
		l.log(WARN, msg, fields...)
	}
}

func Error(msg string, fields ...interface{}) {
	if l := current(); l != nil {
		l.log(ERROR, msg, fields...)
	}
}

func Fatal(msg string, fields ...interface{}) {
	if l := current(); l != nil {
		l.log(FATAL, msg, fields...)
	}
	os.Exit(1)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logInstance != nil && logInstance.file != nil {
		logInstance.file.Close()
		logInstance.file = nil
	}
}

// LogCommand records a chat command or text from a Telegram user.
func LogCommand(username, text string) {
	Info("Command", "user", username, "text", text)
}

func LogButtonClick(username, data string) {
	Info("Button click", "user", username, "data", data)
}
