package logger

type Source struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type AppInfo struct {
	Pid       int    `json:"pid"`
	GoVersion string `json:"go_version"`
}

type LogMessage struct {
	Message   string         `json:"message"`
	LogLevel  string         `json:"log_level"`
	Logstream string         `json:"logstream"`
	Args      map[string]any `json:",omitempty"`
	Source    Source         `json:"source"`
	AppInfo   AppInfo        `json:"app_info"`
}

const NA = "N/A"

// log level
const (
	LL_ERROR LogLevel = iota
	LL_FATAL
	LL_INFO
	LL_WARN
	LL_DEBUG
)

// log stream
const (
	LS_WEBHOOKS Logstream = iota
	LS_RETRIES
	LS_FATAL
	LS_NATS
	LS_HTTP
)

type Logstream uint8
type LogLevel uint8

func (l Logstream) ToString() string {
	return [...]string{"webhooks", "retries", "fatal", "nats", "http"}[l]
}

func (l LogLevel) ToString() string {
	return [...]string{"ERROR", "FATAL", "INFO", "WARN", "DEBUG"}[l]
}

// Sink receives formatted error and fatal entries, e.g. a NATS publisher.
type Sink interface {
	SendLog(logstream string, payload []byte) error
}
