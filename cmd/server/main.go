package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pagedesk/pagedesk/internal/address"
	"github.com/pagedesk/pagedesk/internal/authgate"
	"github.com/pagedesk/pagedesk/internal/cfg"
	"github.com/pagedesk/pagedesk/internal/docstore"
	"github.com/pagedesk/pagedesk/internal/editorhttp"
	"github.com/pagedesk/pagedesk/internal/headings"
	"github.com/pagedesk/pagedesk/internal/health"
	"github.com/pagedesk/pagedesk/internal/httpserver"
	"github.com/pagedesk/pagedesk/internal/log"
	"github.com/pagedesk/pagedesk/internal/metrics"
	"github.com/pagedesk/pagedesk/internal/opshttp"
	"github.com/pagedesk/pagedesk/internal/publish"
	"github.com/pagedesk/pagedesk/internal/ratelimit"
	v "github.com/pagedesk/pagedesk/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix PAGEDESK_ and validate
	cfg.FillFromEnv(flag.CommandLine, "PAGEDESK_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:        v.AppName,
		Level:      lvl,
		JsonFormat: conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	contentRoot := conf.ContentDir
	if !filepath.IsAbs(contentRoot) {
		contentRoot = filepath.Join(conf.RepoDir, contentRoot)
	}

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"repo_dir", conf.RepoDir,
		"content_root", contentRoot,
		"content_types", conf.ContentTypes,
		"editor_mode", conf.EditorMode,
		"enable_push", conf.EnablePush,
		"push_remote", conf.PushRemote,
		"push_timeout", conf.PushTimeout,
	)

	// Setup metrics registry for the admin listener
	m := metrics.New()
	m.SetBuildInfo(vi)

	// Content addressing + document store
	resolver, err := address.NewResolver(contentRoot, conf.Types())
	if err != nil {
		L.Error(ctx, err, "failed to create path resolver")
		os.Exit(1)
	}
	store := docstore.New(resolver, L)
	validator := headings.New()

	// Auth policy is fixed for the process lifetime
	var gate authgate.Policy
	if conf.EditorMode {
		gate = authgate.Bypass{}
		L.Warn(ctx, "editor mode enabled, auth checks bypassed")
	} else {
		gate = authgate.NewToken(conf.AuthToken)
	}

	// Publish pipeline over the git working tree
	repo, err := publish.OpenRepo(conf.RepoDir, conf.PushRemote, conf.CommitName, conf.CommitEmail)
	if err != nil {
		L.Error(ctx, err, "failed to open content repository", "repo_dir", conf.RepoDir)
		os.Exit(1)
	}
	publisher := publish.NewCoordinator(repo, L, conf.EnablePush, conf.PushTimeout)

	api := editorhttp.NewAPI(resolver, store, validator, gate, publisher, m, L)

	// setup toggle for server shutdown
	var shutdownGate health.ShutdownGate

	// Readiness: shutdown gate plus the content root actually existing.
	// The repository was already opened above, so only the content tree
	// can disappear from under us.
	readiness := health.All(
		shutdownGate.Probe(),
		health.CheckFunc(func(ctx context.Context) error {
			st, err := os.Stat(contentRoot)
			if err != nil {
				return err
			}
			if !st.IsDir() {
				return fmt.Errorf("content root %s is not a directory", contentRoot)
			}
			return nil
		}),
	)

	// Rate limiter guards against runaway editor scripts hammering the API
	limiter := ratelimit.New(ctx,
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
	)

	apiHTTPStop, err := httpserver.Start(
		ctx,
		&httpserver.Options{
			Port:         conf.HTTPPort,
			Health:       health.Fixed(true, ""),
			Readiness:    readiness,
			APIRoutes:    api.RegisterRoutes,
			UseRecoverMW: true,
			OnPanic:      m.IncHttpPanic,
			MetricsMW:    m.Middleware,
			RateLimitMW:  limiter.Middleware,
			Logger:       L,
		},
	)
	if err != nil {
		L.Error(ctx, err, "failed to start api http listener")
		os.Exit(1)
	}
	defer func() { _ = apiHTTPStop(context.Background()) }()

	// admin/ops listener for metrics, health checks and pprof
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	L.Info(ctx, "pagedesk ready", "version", vi.Short())

	// block until ctrl+c / sigterm
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so supervisors stop routing, then give in-flight
	// requests (a publish can hold a push for a while) a moment to finish
	shutdownGate.Set("draining")
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(3 * time.Second):
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	if err := apiHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "api http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	L.Info(context.Background(), "shutdown complete")
}
