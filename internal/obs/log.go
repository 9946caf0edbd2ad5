// Package obs holds the observability surface of the engine: a shared JSON
// line logger, trace identifiers, and Prometheus metrics.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// NewTraceID returns an identifier correlating the log lines of one context.
func NewTraceID() string {
	return uuid.NewString()
}

// Event emits a structured JSON log line. A timestamp is added when the
// entry carries none.
func Event(entry map[string]any) {
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
