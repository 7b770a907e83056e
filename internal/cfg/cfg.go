// Package cfg defines the server's configuration: flags with inline
// defaults, environment fill-in (PAGEDESK_ prefix), and validation.
// Precedence: cli flag > env var > default.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/pagedesk/pagedesk/internal/log"
)

type App struct {
	LogJSON  bool
	LogLevel string

	HTTPPort    int
	AdminPort   int
	EnablePprof bool

	// Content repository layout
	ContentDir   string
	RepoDir      string
	ContentTypes string // comma-separated, e.g. "pages,posts"

	// AuthGate: editor mode bypasses credential checks entirely.
	// Never enable outside a local workstation.
	EditorMode bool
	AuthToken  string

	// PublishCoordinator
	EnablePush  bool
	PushRemote  string
	PushTimeout time.Duration
	CommitName  string
	CommitEmail string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", false, "Enable pprof profiling (on admin port only)")
	fs.StringVar(&c.ContentDir, "content-dir", "content", "content root, relative to repo-dir unless absolute")
	fs.StringVar(&c.RepoDir, "repo-dir", ".", "git working tree holding the content")
	fs.StringVar(&c.ContentTypes, "content-types", "pages,posts", "comma-separated content type directories under content-dir")
	fs.BoolVar(&c.EditorMode, "editor-mode", false, "bypass auth for offline editing (never enable in production)")
	fs.StringVar(&c.AuthToken, "auth-token", "", "bearer token required for mutating requests when editor-mode is off")
	fs.BoolVar(&c.EnablePush, "enable-push", false, "push commits to push-remote after publish")
	fs.StringVar(&c.PushRemote, "push-remote", "origin", "git remote to push to")
	fs.DurationVar(&c.PushTimeout, "push-timeout", 30*time.Second, "bound on a single push attempt")
	fs.StringVar(&c.CommitName, "commit-name", "pagedesk", "author name for publish commits")
	fs.StringVar(&c.CommitEmail, "commit-email", "pagedesk@localhost", "author email for publish commits")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Types returns the parsed content type list, whitespace trimmed,
// empty entries dropped.
func (c App) Types() []string {
	var out []string
	for _, t := range strings.Split(c.ContentTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	// Repository layout
	if c.RepoDir == "" {
		errs = append(errs, fmt.Errorf("REPO_DIR is required"))
	}
	if c.ContentDir == "" {
		errs = append(errs, fmt.Errorf("CONTENT_DIR is required"))
	}
	if len(c.Types()) == 0 {
		errs = append(errs, fmt.Errorf("CONTENT_TYPES must name at least one content type"))
	}

	// Auth: without editor mode we need a credential to verify against.
	if !c.EditorMode && c.AuthToken == "" {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN is required when EDITOR_MODE=false"))
	}

	// Publish
	if c.EnablePush && c.PushRemote == "" {
		errs = append(errs, fmt.Errorf("PUSH_REMOTE required when ENABLE_PUSH=true"))
	}
	if c.PushTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PUSH_TIMEOUT must be positive (got %s)", c.PushTimeout))
	}
	if c.CommitName == "" {
		errs = append(errs, fmt.Errorf("COMMIT_NAME is required"))
	}
	if c.CommitEmail == "" {
		errs = append(errs, fmt.Errorf("COMMIT_EMAIL is required"))
	} else if _, err := mail.ParseAddress(c.CommitEmail); err != nil {
		errs = append(errs, fmt.Errorf("COMMIT_EMAIL must be an address (got %q): %v", c.CommitEmail, err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
