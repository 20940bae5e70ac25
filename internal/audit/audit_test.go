package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWriteSuccessIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Write(log, Entry{
		Action:       "ssh.exec",
		ResourceType: "host",
		ResourceID:   "root@example.com:22",
		Status:       StatusSuccess,
	})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["audit_action"] != "ssh.exec" {
		t.Errorf("audit_action = %v, want ssh.exec", decoded["audit_action"])
	}
	if decoded["audit_status"] != StatusSuccess {
		t.Errorf("audit_status = %v, want %v", decoded["audit_status"], StatusSuccess)
	}
	if decoded["level"] != "info" {
		t.Errorf("level = %v, want info", decoded["level"])
	}
}

func TestWriteFailureLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Write(log, Entry{
		Action:       "ssh.write_file",
		ResourceType: "host",
		ResourceID:   "root@example.com:22",
		Status:       StatusFailed,
		Detail:       map[string]any{"error": "boom"},
	})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["level"] != "warn" {
		t.Errorf("level = %v, want warn", decoded["level"])
	}
	if decoded["error"] != "boom" {
		t.Errorf("error = %v, want boom", decoded["error"])
	}
}
