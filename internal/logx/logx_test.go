package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithUserAddsField(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	WithUser(ctx, "pwa_user").Info("hello")

	entry := capture.firstEntry(t)
	if entry["user"] != "pwa_user" {
		t.Fatalf("expected user field, got %+v", entry)
	}
}

func TestWithUserSkipsDuplicate(t *testing.T) {
	capture := &logCapture{}
	ctx := ContextWithUserLogger(context.Background(), newCaptureLogger(capture), "pwa_user")
	WithUser(ctx, "pwa_user").Info("hello")

	line := strings.TrimSpace(capture.buf.String())
	if n := strings.Count(line, `"user"`); n != 1 {
		t.Fatalf("expected one user field, got %d in %s", n, line)
	}
}

func TestWithClientAddsFields(t *testing.T) {
	capture := &logCapture{}
	log := WithClient(WithComponent(newCaptureLogger(capture), "server"), "c1", "127.0.0.1:5000")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["component"] != "server" || entry["client"] != "c1" || entry["remote"] != "127.0.0.1:5000" {
		t.Fatalf("missing fields, got %+v", entry)
	}
}

func TestWithClientSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	WithClient(newCaptureLogger(capture), "", "").Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["client"]; ok {
		t.Fatalf("did not expect client field, got %+v", entry)
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pulse.log")
	log, closer, err := OpenFile(path, false)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	log.Debug("hidden")
	log.Info("visible")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("debug line written at info level: %s", data)
	}
	if !strings.Contains(string(data), "visible") {
		t.Errorf("info line missing: %s", data)
	}
}

func TestOpenFileEmptyPathDiscards(t *testing.T) {
	log, closer, err := OpenFile("", true)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	log.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
