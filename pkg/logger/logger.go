package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Category represents a log category
type Category string

const (
	CategoryAuth      Category = "auth"
	CategoryAPI       Category = "api"
	CategoryDB        Category = "db"
	CategoryCluster   Category = "cluster"
	CategoryAlert     Category = "alert"
	CategoryFace      Category = "face"
	CategoryReport    Category = "report"
	CategoryStorage   Category = "storage"
	CategoryMessaging Category = "messaging"
	CategoryWebSocket Category = "websocket"
	CategoryScheduler Category = "scheduler"
	CategoryStartup   Category = "startup"
)

// AllCategories lists every category that owns a log file.
var AllCategories = []Category{
	CategoryAuth, CategoryAPI, CategoryDB, CategoryCluster, CategoryAlert, CategoryFace,
	CategoryReport, CategoryStorage, CategoryMessaging, CategoryWebSocket, CategoryScheduler, CategoryStartup,
}

// Level represents log level
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Category  Category               `json:"category"`
	Action    string                 `json:"action"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "message"
	zerolog.LevelFieldName = "level"
	zerolog.ErrorFieldName = "error"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
}

type categoryWriter struct {
	file *os.File
	day  string
	log  zerolog.Logger
}

// Logger writes one JSON line per entry into a per-category, per-day file
type Logger struct {
	mu       sync.Mutex
	logDir   string
	writers  map[Category]*categoryWriter
	console  *zerolog.Logger
	minLevel zerolog.Level
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger
func Init(logDir string, console bool) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logDir, console)
	})
	return err
}

// NewLogger creates a new logger
func NewLogger(logDir string, console bool) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir:   logDir,
		writers:  make(map[Category]*categoryWriter),
		minLevel: zerolog.DebugLevel,
	}
	if console {
		cw := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()
		l.console = &cw
	}
	return l, nil
}

// SetMinLevel drops entries below the given level
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = toZerolog(level)
}

func (l *Logger) writer(category Category) (zerolog.Logger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if w, ok := l.writers[category]; ok {
		if w.day == today {
			return w.log, nil
		}
		w.file.Close()
	}

	path := filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", category, today))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), err
	}

	w := &categoryWriter{
		file: file,
		day:  today,
		log:  zerolog.New(file).With().Timestamp().Logger(),
	}
	l.writers[category] = w
	return w.log, nil
}

// Log writes a log entry
func (l *Logger) Log(entry LogEntry) {
	level := toZerolog(entry.Level)
	if level < l.minLevel {
		return
	}

	fileLog, err := l.writer(entry.Category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting log writer: %v\n", err)
	} else {
		emit(fileLog.WithLevel(level), entry)
	}

	if l.console != nil {
		emit(l.console.WithLevel(level), entry)
	}
}

func emit(ev *zerolog.Event, entry LogEntry) {
	ev = ev.Str("category", string(entry.Category)).Str("action", entry.Action)
	if len(entry.Data) > 0 {
		ev = ev.Interface("data", entry.Data)
	}
	if entry.UserID != "" {
		ev = ev.Str("user_id", entry.UserID)
	}
	if entry.RequestID != "" {
		ev = ev.Str("request_id", entry.RequestID)
	}
	if entry.Duration != "" {
		ev = ev.Str("duration", entry.Duration)
	}
	if entry.Error != "" {
		ev = ev.Str("error", entry.Error)
	}
	ev.Msg(entry.Message)
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Close closes all file writers
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range l.writers {
		w.file.Close()
	}
	l.writers = make(map[Category]*categoryWriter)
}

// Default returns the default logger
func Default() *Logger {
	if defaultLogger == nil {
		Init("logs", true)
	}
	return defaultLogger
}

// SetDefault replaces the package logger. Used by tests and the CLI.
func SetDefault(l *Logger) {
	once.Do(func() {})
	defaultLogger = l
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Info logs info level message
func Info(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{Level: LevelInfo, Category: category, Action: action, Message: message, Data: data})
}

// Error logs error level message
func Error(category Category, action, message string, err error, data map[string]interface{}) {
	Default().Log(LogEntry{Level: LevelError, Category: category, Action: action, Message: message, Error: errString(err), Data: data})
}

// Debug logs debug level message
func Debug(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{Level: LevelDebug, Category: category, Action: action, Message: message, Data: data})
}

// Warn logs warning level message
func Warn(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{Level: LevelWarn, Category: category, Action: action, Message: message, Data: data})
}

// Cluster logs clustering and region map events
func Cluster(action, message string, data map[string]interface{}) {
	Info(CategoryCluster, action, message, data)
}

// ClusterWarn logs region map consistency warnings. These never reach the end caller.
func ClusterWarn(action, message string, err error, data map[string]interface{}) {
	Default().Log(LogEntry{Level: LevelWarn, Category: CategoryCluster, Action: action, Message: message, Error: errString(err), Data: data})
}

// ClusterError logs clustering errors
func ClusterError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryCluster, action, message, err, data)
}

// Alert logs SOS alert resolution events
func Alert(action, message string, data map[string]interface{}) {
	Info(CategoryAlert, action, message, data)
}

// AlertError logs SOS alert errors
func AlertError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryAlert, action, message, err, data)
}

// Face logs face matching operations
func Face(action, message string, data map[string]interface{}) {
	Info(CategoryFace, action, message, data)
}

// FaceError logs face matching errors
func FaceError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryFace, action, message, err, data)
}

// Report logs report lifecycle events
func Report(action, message string, data map[string]interface{}) {
	Info(CategoryReport, action, message, data)
}

// ReportError logs report lifecycle errors
func ReportError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryReport, action, message, err, data)
}

// Storage logs object storage operations
func Storage(action, message string, data map[string]interface{}) {
	Info(CategoryStorage, action, message, data)
}

// StorageError logs object storage errors
func StorageError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryStorage, action, message, err, data)
}

// Messaging logs broker events
func Messaging(action, message string, data map[string]interface{}) {
	Info(CategoryMessaging, action, message, data)
}

// MessagingError logs broker errors
func MessagingError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryMessaging, action, message, err, data)
}

// WebSocket logs WebSocket related events
func WebSocket(action, message string, data map[string]interface{}) {
	Info(CategoryWebSocket, action, message, data)
}

// WebSocketError logs WebSocket errors
func WebSocketError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryWebSocket, action, message, err, data)
}

// API logs API request/response events
func API(action, message string, data map[string]interface{}) {
	Info(CategoryAPI, action, message, data)
}

// DB logs database operations
func DB(action, message string, data map[string]interface{}) {
	Debug(CategoryDB, action, message, data)
}

// Scheduler logs scheduler events
func Scheduler(action, message string, data map[string]interface{}) {
	Info(CategoryScheduler, action, message, data)
}

// SchedulerWarn logs scheduler warnings
func SchedulerWarn(action, message string, data map[string]interface{}) {
	Warn(CategoryScheduler, action, message, data)
}

// SchedulerError logs scheduler errors
func SchedulerError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryScheduler, action, message, err, data)
}

// Startup logs startup/initialization events
func Startup(action, message string, data map[string]interface{}) {
	Info(CategoryStartup, action, message, data)
}

// StartupError logs startup errors
func StartupError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryStartup, action, message, err, data)
}

// StartupWarn logs startup warnings
func StartupWarn(action, message string, data map[string]interface{}) {
	Warn(CategoryStartup, action, message, data)
}

// ReadLogsOptions options for reading logs
type ReadLogsOptions struct {
	Category Category // empty = all
	Level    Level    // empty = all
	Lines    int      // default 100, max 1000
	Search   string   // matched against message, action and error
}

// ReadLogs reads log entries from files
func ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	return Default().ReadLogs(opts)
}

// ReadLogs reads today's entries from the logger's log directory, newest first
func (l *Logger) ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	if opts.Lines <= 0 {
		opts.Lines = 100
	}
	if opts.Lines > 1000 {
		opts.Lines = 1000
	}

	today := time.Now().Format("2006-01-02")
	categories := AllCategories
	if opts.Category != "" {
		categories = []Category{opts.Category}
	}

	var entries []LogEntry
	search := strings.ToLower(opts.Search)

	for _, cat := range categories {
		file, err := os.Open(filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", cat, today)))
		if err != nil {
			continue
		}
		entries = append(entries, scanEntries(file, opts.Level, search)...)
		file.Close()
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if len(entries) > opts.Lines {
		entries = entries[:opts.Lines]
	}
	return entries, nil
}

func scanEntries(r io.Reader, level Level, search string) []LogEntry {
	var entries []LogEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if level != "" && entry.Level != level {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(entry.Message), search) &&
			!strings.Contains(strings.ToLower(entry.Action), search) &&
			!strings.Contains(strings.ToLower(entry.Error), search) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// GetLogDir returns the log directory path
func GetLogDir() string {
	return Default().logDir
}

// ListLogFiles returns list of log files
func ListLogFiles() ([]string, error) {
	return Default().ListLogFiles()
}

// ListLogFiles returns list of log files in the log directory
func (l *Logger) ListLogFiles() ([]string, error) {
	var files []string

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".log" {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
