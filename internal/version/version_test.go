package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v0.4.0"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v0.4.0" {
		t.Fatalf("Current() = %q, want v0.4.0", got)
	}
}

func TestPseudo(t *testing.T) {
	ts := time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC)
	info := &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef0123456789"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	got := pseudo(info)
	if got != "v0.0.0-20250301093000-abcdef012345+dirty" {
		t.Fatalf("pseudo() = %q", got)
	}
	if pseudo(nil) != "" {
		t.Fatal("nil build info should give no version")
	}
	if pseudo(&debug.BuildInfo{}) != "" {
		t.Fatal("missing vcs stamps should give no version")
	}
}

func TestModule(t *testing.T) {
	if got := Module(); !strings.Contains(got, "/") {
		t.Errorf("Module() = %q", got)
	}
}
