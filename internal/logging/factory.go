package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
)

// LogConfig configures NewLogger
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	MaxFileSize     int64
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
	ConsoleWriter   io.Writer
}

// DefaultLogConfig returns the configuration used when none is given
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		MaxFileSize:     100 * 1024 * 1024,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     true,
		EnableTimestamp: true,
	}
}

// NewLogger builds a console logger, a file logger, both, or a no-op logger
func NewLogger(config LogConfig) (Logger, error) {
	var loggers []Logger

	if config.EnableConsole {
		writer := config.ConsoleWriter
		if writer == nil {
			writer = os.Stderr
		}
		loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
			Writer:           writer,
			Level:            config.Level,
			ColorEnabled:     config.EnableColor && isTerminal(writer),
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			for _, l := range loggers {
				_ = l.Close()
			}
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

// NewDebugLoggerWithTrace builds a logger plus, when EnableDebug is set, a
// writer that logs every FTP control-connection line at DEBUG level.
// The trace writer is nil when debug is disabled.
func NewDebugLoggerWithTrace(config LogConfig) (Logger, io.Writer, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, NewProtocolTraceWriter(logger), nil
}

// ProtocolTraceWriter turns a byte stream of protocol traffic into
// one DEBUG log message per line. PASS arguments never reach the logger.
type ProtocolTraceWriter struct {
	mu     sync.Mutex
	logger Logger
	buf    bytes.Buffer
}

// NewProtocolTraceWriter creates a trace writer logging to logger
func NewProtocolTraceWriter(logger Logger) *ProtocolTraceWriter {
	return &ProtocolTraceWriter{logger: logger}
}

func (w *ProtocolTraceWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		w.logger.Debug("ftp", F("line", redactFTPCommand(line)))
	}
	return len(p), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
