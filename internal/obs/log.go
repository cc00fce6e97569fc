package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// serviceName tags every log line so output aggregated across services
// stays attributable to the account service.
const serviceName = "eebook-users"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. Entries go to stdout as
// bare JSON objects; shipping and retention belong to the platform.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one JSON object per line, stamping the service name
// unless the caller already set one.
func LogRequest(entry map[string]any) {
	if entry == nil {
		entry = map[string]any{}
	}
	if _, ok := entry["service"]; !ok {
		entry["service"] = serviceName
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"service":"` + serviceName + `","level":"error","msg":"unserializable log entry"}`)
		return
	}
	Logger().Println(string(data))
}
