package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to stdout/stderr,
// optionally mirrored to per-level files.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	mu         sync.Mutex
}

// New creates a Logger. Info entries are dropped unless verbose is set.
// When logDir is non-empty, entries are also appended to info.log,
// warning.log and error.log inside it.
func New(verbose bool, logDir string) (*Logger, error) {
	var infoOut io.Writer = os.Stdout
	if !verbose {
		infoOut = io.Discard
	}
	warningOut := io.Writer(os.Stdout)
	errorOut := io.Writer(os.Stderr)

	l := &Logger{}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		infoFile, err := l.openLogFile(filepath.Join(logDir, "info.log"))
		if err != nil {
			return nil, err
		}
		warningFile, err := l.openLogFile(filepath.Join(logDir, "warning.log"))
		if err != nil {
			l.Close()
			return nil, err
		}
		errorFile, err := l.openLogFile(filepath.Join(logDir, "error.log"))
		if err != nil {
			l.Close()
			return nil, err
		}
		infoOut = io.MultiWriter(infoOut, infoFile)
		warningOut = io.MultiWriter(warningOut, warningFile)
		errorOut = io.MultiWriter(errorOut, errorFile)
	}

	l.infoLog = log.New(infoOut, "INFO    ", log.Ldate|log.Ltime)
	l.warningLog = log.New(warningOut, "WARNING ", log.Ldate|log.Ltime)
	l.errorLog = log.New(errorOut, "ERROR   ", log.Ldate|log.Ltime)
	return l, nil
}

// Discard returns a Logger that writes nowhere, for tests
func Discard() *Logger {
	return &Logger{
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
	}
}

// openLogFile opens or creates a log file for appending
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Close closes any log files
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}
