package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel accepts the usual level names, including the WARNING and
// CRITICAL spellings found in existing .env files.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL", "CRITICAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

type Options struct {
	// Console receives human readable lines. Defaults to os.Stderr.
	Console      io.Writer
	ConsoleLevel LogLevel

	// FilePath enables the JSON-lines file sink when non-empty.
	FilePath      string
	FileLevel     LogLevel
	MaxSizeMB     int
	RetentionDays int
}

// Logger writes every entry to a console sink and, optionally, to an
// append-only file. Each sink filters by its own level.
type Logger struct {
	console      io.Writer
	consoleLevel LogLevel
	styles       map[LogLevel]lipgloss.Style
	consoleMu    sync.Mutex

	fileLevel    LogLevel
	file         *os.File
	filePath     string
	maxSizeBytes int64
	maxAgeDays   int
	fileMu       sync.Mutex
}

type LogEntry struct {
	Level     string                 `json:"level"`
	Timestamp string                 `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		console:      console,
		consoleLevel: opts.ConsoleLevel,
		styles:       levelStyles(lipgloss.NewRenderer(console)),
		fileLevel:    opts.FileLevel,
	}

	if opts.FilePath != "" {
		if err := l.openFile(opts.FilePath, opts.MaxSizeMB, opts.RetentionDays); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		console:      io.Discard,
		consoleLevel: FATAL + 1,
		styles:       map[LogLevel]lipgloss.Style{},
	}
}

func levelStyles(r *lipgloss.Renderer) map[LogLevel]lipgloss.Style {
	return map[LogLevel]lipgloss.Style{
		DEBUG: r.NewStyle().Foreground(lipgloss.Color("12")),
		INFO:  r.NewStyle().Foreground(lipgloss.Color("10")),
		WARN:  r.NewStyle().Foreground(lipgloss.Color("11")),
		ERROR: r.NewStyle().Foreground(lipgloss.Color("9")),
		FATAL: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

func (l *Logger) openFile(filePath string, maxSizeMB, maxAgeDays int) error {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 3
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.filePath = filePath
	l.maxSizeBytes = int64(maxSizeMB) * 1024 * 1024
	l.maxAgeDays = maxAgeDays
	if err := l.cleanupOldLogFiles(); err != nil {
		fmt.Fprintln(l.console, "Failed to clean up old log files:", err)
	}
	return nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) logMessage(level LogLevel, component string, message string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	toConsole := level >= l.consoleLevel
	toFile := level >= l.fileLevel && l.hasFile()
	if !toConsole && !toFile {
		return
	}

	entry := LogEntry{
		Level:     logLevelNames[level],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if toFile {
		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				entry.Caller = fmt.Sprintf("%s:%d (%s)", file, line, fn.Name())
			}
		}
		jsonData, err := json.Marshal(entry)
		if err == nil {
			if err := l.writeLine(append(jsonData, '\n')); err != nil {
				fmt.Fprintln(l.console, "Failed to write file log:", err)
			}
		}
	}

	if !toConsole {
		return
	}

	var fieldStr string
	if len(fields) > 0 {
		fieldStr = " " + formatFields(fields)
	}

	tag := "[" + entry.Level + "]"
	if style, ok := l.styles[level]; ok {
		tag = style.Render(tag)
	}

	l.consoleMu.Lock()
	fmt.Fprintf(l.console, "[%s] %s%s %s%s\n",
		entry.Timestamp,
		tag,
		formatComponent(component),
		message,
		fieldStr,
	)
	l.consoleMu.Unlock()
}

func (l *Logger) hasFile() bool {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	return l.file != nil
}

func (l *Logger) writeLine(line []byte) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	if l.file == nil {
		return nil
	}

	if l.maxSizeBytes > 0 {
		if err := l.rotateIfNeeded(int64(len(line))); err != nil {
			return err
		}
	}

	_, err := l.file.Write(line)
	return err
}

func (l *Logger) rotateIfNeeded(nextWrite int64) error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}

	if info.Size()+nextWrite <= l.maxSizeBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}

	backupPath := fmt.Sprintf("%s.%s", l.filePath, time.Now().UTC().Format("20060102-150405"))
	if err := os.Rename(l.filePath, backupPath); err != nil {
		return err
	}

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file

	return l.cleanupOldLogFiles()
}

func (l *Logger) cleanupOldLogFiles() error {
	if l.maxAgeDays <= 0 || l.filePath == "" {
		return nil
	}

	dir := filepath.Dir(l.filePath)
	base := filepath.Base(l.filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -l.maxAgeDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		// Only rotated files like app.log.20260213-120000
		if !strings.HasPrefix(name, base+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}

	return nil
}

func formatComponent(component string) string {
	if component == "" {
		return ""
	}
	return fmt.Sprintf(" %s:", component)
}

func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

func (l *Logger) Debug(message string) {
	l.logMessage(DEBUG, "", message, nil)
}

func (l *Logger) DebugC(component string, message string) {
	l.logMessage(DEBUG, component, message, nil)
}

func (l *Logger) DebugCF(component string, message string, fields map[string]interface{}) {
	l.logMessage(DEBUG, component, message, fields)
}

func (l *Logger) Info(message string) {
	l.logMessage(INFO, "", message, nil)
}

func (l *Logger) InfoC(component string, message string) {
	l.logMessage(INFO, component, message, nil)
}

func (l *Logger) InfoCF(component string, message string, fields map[string]interface{}) {
	l.logMessage(INFO, component, message, fields)
}

func (l *Logger) Warn(message string) {
	l.logMessage(WARN, "", message, nil)
}

func (l *Logger) WarnC(component string, message string) {
	l.logMessage(WARN, component, message, nil)
}

func (l *Logger) WarnCF(component string, message string, fields map[string]interface{}) {
	l.logMessage(WARN, component, message, fields)
}

func (l *Logger) Error(message string) {
	l.logMessage(ERROR, "", message, nil)
}

func (l *Logger) ErrorC(component string, message string) {
	l.logMessage(ERROR, component, message, nil)
}

func (l *Logger) ErrorCF(component string, message string, fields map[string]interface{}) {
	l.logMessage(ERROR, component, message, fields)
}

// FatalCF records an unrecoverable condition. It does not exit; the caller
// decides how to terminate.
func (l *Logger) FatalCF(component string, message string, fields map[string]interface{}) {
	l.logMessage(FATAL, component, message, fields)
}
