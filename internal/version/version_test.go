package version

import (
	"strings"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	i := Get()
	if i.AppName != AppName {
		t.Errorf("AppName = %q", i.AppName)
	}
	if i.Version == "" {
		t.Error("Version should never be empty")
	}
	if i.GoVersion == "" {
		t.Error("GoVersion should be filled from build info")
	}
}

func TestShortTruncatesCommit(t *testing.T) {
	i := Info{Version: "1.2.3", Commit: "0123456789abcdef0123456789abcdef"}
	s := i.Short()
	if !strings.HasPrefix(s, "1.2.3 (") {
		t.Fatalf("Short() = %q", s)
	}
	if strings.Contains(s, "abcdef0123456789abcdef") {
		t.Fatalf("commit not truncated: %q", s)
	}
}
