package cfg

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func validApp() App {
	return App{
		LogJSON:     true,
		LogLevel:    "info",
		HTTPPort:    8080,
		AdminPort:   9000,
		ContentDir:  "content",
		RepoDir:     ".",
		ContentTypes: "pages,posts",
		EditorMode:  true,
		PushRemote:  "origin",
		PushTimeout: 30 * time.Second,
		CommitName:  "pagedesk",
		CommitEmail: "pagedesk@localhost",
	}
}

func TestRegisterDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.HTTPPort != 8080 || c.AdminPort != 9000 {
		t.Errorf("port defaults = %d/%d", c.HTTPPort, c.AdminPort)
	}
	if c.EditorMode {
		t.Error("editor-mode must default to false")
	}
	if c.EnablePush {
		t.Error("enable-push must default to false")
	}
	if c.PushTimeout != 30*time.Second {
		t.Errorf("push-timeout default = %s", c.PushTimeout)
	}
}

func TestFillFromEnv(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse([]string{"-http-port", "8888"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	t.Setenv("PDTEST_HTTP_PORT", "7777")  // cli wins
	t.Setenv("PDTEST_ADMIN_PORT", "9999") // env fills
	t.Setenv("PDTEST_LOG_LEVEL", "debug")

	FillFromEnv(fs, "PDTEST_", nil)

	if c.HTTPPort != 8888 {
		t.Errorf("cli flag should win over env, got %d", c.HTTPPort)
	}
	if c.AdminPort != 9999 {
		t.Errorf("env should fill unset flag, got %d", c.AdminPort)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", c.LogLevel)
	}
}

func TestFillFromEnvInvalidValueIgnored(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Setenv("PDTEST_HTTP_PORT", "not-a-number")
	FillFromEnv(fs, "PDTEST_", nil)
	if c.HTTPPort != 8080 {
		t.Errorf("invalid env should leave default, got %d", c.HTTPPort)
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(validApp()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*App)
		want   string
	}{
		{"bad http port", func(c *App) { c.HTTPPort = 0 }, "HTTP_PORT"},
		{"same ports", func(c *App) { c.AdminPort = c.HTTPPort }, "must differ"},
		{"bad level", func(c *App) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"no repo", func(c *App) { c.RepoDir = "" }, "REPO_DIR"},
		{"no types", func(c *App) { c.ContentTypes = " , " }, "CONTENT_TYPES"},
		{"token required", func(c *App) { c.EditorMode = false; c.AuthToken = "" }, "AUTH_TOKEN"},
		{"push remote", func(c *App) { c.EnablePush = true; c.PushRemote = "" }, "PUSH_REMOTE"},
		{"push timeout", func(c *App) { c.PushTimeout = 0 }, "PUSH_TIMEOUT"},
		{"commit email", func(c *App) { c.CommitEmail = "not-an-address" }, "COMMIT_EMAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validApp()
			tt.mutate(&c)
			err := Validate(c)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	c := App{ContentTypes: " pages, posts ,,notes "}
	got := c.Types()
	want := []string{"pages", "posts", "notes"}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Types()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
