package obs

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestLogRequestStampsService(t *testing.T) {
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	defer Logger().SetOutput(os.Stdout)

	LogRequest(map[string]any{"event": "unit", "status": 200})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if entry["service"] != serviceName {
		t.Fatalf("service not stamped: %v", entry["service"])
	}
	if entry["event"] != "unit" {
		t.Fatalf("caller fields lost: %v", entry)
	}

	// A caller-supplied service name wins over the default.
	buf.Reset()
	LogRequest(map[string]any{"service": "eebook-billing"})
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["service"] != "eebook-billing" {
		t.Fatalf("caller service overridden: %v", entry["service"])
	}
}

func TestLogRequestNilEntry(t *testing.T) {
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	defer Logger().SetOutput(os.Stdout)

	LogRequest(nil)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["service"] != serviceName {
		t.Fatalf("service not stamped: %v", entry["service"])
	}
}
