package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/golang-cz/devslog"
	"github.com/google/uuid"
)

type Logger struct {
	slog *slog.Logger
	sink *atomic.Pointer[Sink]
}

// Init builds the process logger: devslog for development, JSON for prod.
func Init(prodEnv bool) Logger {
	return New(os.Stdout, prodEnv)
}

func New(w io.Writer, prodEnv bool) Logger {
	slogOpts := &slog.HandlerOptions{}

	var handler slog.Handler
	if prodEnv {
		slogOpts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(w, slogOpts)
	} else {
		slogOpts.Level = slog.LevelDebug
		handler = devslog.NewHandler(w, &devslog.Options{
			HandlerOptions:    slogOpts,
			MaxSlicePrintSize: 4,
			SortKeys:          true,
			NewLineAfterLog:   true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return Logger{slog: logger, sink: new(atomic.Pointer[Sink])}
}

// Nop discards everything. Used by tests and the CLI's quiet mode.
func Nop() Logger {
	return Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil)), sink: new(atomic.Pointer[Sink])}
}

func (l Logger) SetSink(s Sink) {
	if l.sink == nil {
		return
	}
	if s == nil {
		l.sink.Store(nil)
		return
	}
	l.sink.Store(&s)
}

// example Info("retry scheduled", LS_RETRIES, false, "webhook_id", id)
func (l Logger) Info(message string, logStream Logstream, isTemplate bool, args ...any) {
	l.log(LL_INFO, message, logStream, isTemplate, args...)
}

func (l Logger) Warn(message string, logStream Logstream, isTemplate bool, args ...any) {
	l.log(LL_WARN, message, logStream, isTemplate, args...)
}

func (l Logger) Error(message string, logStream Logstream, isTemplate bool, args ...any) {
	l.log(LL_ERROR, message, logStream, isTemplate, args...)
}

func (l Logger) Fatal(message string, logStream Logstream, isTemplate bool, args ...any) {
	l.log(LL_FATAL, message, logStream, isTemplate, args...)
}

func (l Logger) Debug(message string, args ...any) {
	_, file, line, _ := runtime.Caller(1)
	l.printLog(LL_DEBUG, message, LS_WEBHOOKS, file, line, args...)
}

func (l Logger) log(ll LogLevel, message string, logStream Logstream, isTemplate bool, args ...any) {
	skip := 2
	if isTemplate {
		skip = 3
	}

	pc, file, line, _ := runtime.Caller(skip)
	l.printLog(ll, message, logStream, file, line, args...)

	if ll != LL_ERROR && ll != LL_FATAL {
		return
	}

	sink := l.loadSink()
	if sink == nil {
		return
	}

	payload, err := formatLog(ll, message, logStream, pc, file, line, args...)
	if err != nil {
		fmt.Printf("%s:%d: format log error: %v\n", file, line, err)
		return
	}

	if ll == LL_FATAL {
		sendLog(sink, logStream, payload)
		return
	}
	go sendLog(sink, logStream, payload)
}

func (l Logger) loadSink() Sink {
	if l.sink == nil {
		return nil
	}
	p := l.sink.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (l Logger) printLog(ll LogLevel, message string, logStream Logstream, file string, line int, args ...any) {
	if l.slog == nil {
		return
	}

	args = append(args, "logstream", logStream.ToString(), "source", file+":"+strconv.Itoa(line))
	switch ll {
	case LL_ERROR, LL_FATAL:
		l.slog.Error(message, args...)
	case LL_WARN:
		l.slog.Warn(message, args...)
	case LL_INFO:
		l.slog.Info(message, args...)
	case LL_DEBUG:
		l.slog.Debug(message, args...)
	}
}

func sendLog(sink Sink, logStream Logstream, payload []byte) {
	if err := sink.SendLog(logStream.ToString(), payload); err != nil {
		fmt.Println("Error sending log:", err)
	}
}

func formatLog(ll LogLevel, message string, logStream Logstream, pc uintptr, file string, line int, args ...any) ([]byte, error) {
	var callerFunc string
	if fn := runtime.FuncForPC(pc); fn != nil {
		callerFunc = fn.Name()
	}

	logMessage := LogMessage{
		Message:   message,
		LogLevel:  ll.ToString(),
		Logstream: logStream.ToString(),
		Args:      make(map[string]any),
		Source: Source{
			Function: callerFunc,
			File:     file,
			Line:     line,
		},
		AppInfo: AppInfo{
			Pid:       os.Getpid(),
			GoVersion: runtime.Version(),
		},
	}

	if len(args)%2 != 0 {
		return nil, fmt.Errorf("odd number of log args: %d", len(args))
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return nil, fmt.Errorf("the key must be a string: %v", args[i])
		}
		value := args[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		logMessage.Args[key] = value
	}

	return json.Marshal(logMessage)
}

func AnyToStr(t any) string {
	return fmt.Sprintf("%v", t)
}

func GenErrorId() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return NA
	}
	return id.String()
}
