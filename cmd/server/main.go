package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commonshub/commonshub-web/internal/bundle"
	"github.com/commonshub/commonshub-web/internal/cfg"
	"github.com/commonshub/commonshub-web/internal/content"
	"github.com/commonshub/commonshub-web/internal/contenthttp"
	"github.com/commonshub/commonshub-web/internal/health"
	"github.com/commonshub/commonshub-web/internal/httpserver"
	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/metrics"
	"github.com/commonshub/commonshub-web/internal/opshttp"
	"github.com/commonshub/commonshub-web/internal/otelx"
	"github.com/commonshub/commonshub-web/internal/prof"
	"github.com/commonshub/commonshub-web/internal/ratelimit"
	v "github.com/commonshub/commonshub-web/internal/version"
)

const appName = "commonshub-web"

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
			"%s %s (commit=%s, commit_date=%s, build_date=%s, go=%s, dirty=%v)\n",
			appName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix CHUB_ and validate
	cfg.FillFromEnv(flag.CommandLine, "CHUB_", func(format string, args ...any) {
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
	stLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:             appName,
		Version:         vi.Version,
		Commit:          vi.Commit,
		Level:           lvl,
		StacktraceLevel: stLvl,
		JsonFormat:      conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	// no-op for slog/stderr, but here if we swap backends in the future
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
		"trace_sample", conf.TraceSample,
		"content_root", conf.ContentRoot,
		"enable_content_watch", conf.EnableContentWatch,
		"enable_bundle_sync", conf.EnableBundleSync,
		"bundle_ssm_param", conf.BundleSSMParam,
		"bundle_s3_bucket", conf.BundleS3Bucket,
		"bundle_s3_prefix", conf.BundleS3Prefix,
	)

	// Setup metrics registry before anything that reports into it
	m := metrics.New()
	m.SetBuildInfoFromVersion(appName, "server", &vi)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       appName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       appName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"source":    "go-agent",
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer func() { stopProf() }()

	// Setup otel for tracing
	// Insecure is true because we only write to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   appName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// Content: registry of known documents plus the shared validation status
	registry := content.Default()
	status := content.NewStatus()

	// source is whatever the content API reads through: a fixed local root,
	// or the bundle manager when syncing from S3
	var source contenthttp.LoaderSource

	if conf.EnableBundleSync {
		fetcher, err := bundle.NewFetcher(ctx, bundle.FetcherOptions{
			Logger:   L,
			SSMParam: conf.BundleSSMParam,
			S3Bucket: conf.BundleS3Bucket,
			S3Prefix: conf.BundleS3Prefix,
			CacheDir: conf.BundleCacheDir,
		})
		if err != nil {
			L.Error(ctx, err, "failed to create bundle fetcher")
			os.Exit(1)
		}

		manager := bundle.NewManager()
		source = manager

		// install the current bundle at startup; a failure leaves the server
		// running but not ready until the watcher lands a good bundle
		if err := installCurrentBundle(ctx, L, fetcher, manager, registry, status, m); err != nil {
			L.Error(ctx, err, "initial bundle load failed, waiting for watcher")
		}
		m.SetContentSource("s3")

		watcher, err := bundle.NewWatcher(&bundle.WatcherOptions{
			Logger:        L,
			Fetcher:       fetcher,
			Manager:       manager,
			Registry:      registry,
			Status:        status,
			PollInterval:  conf.BundlePollInterval,
			LoaderMetrics: m,
			Metrics:       m,
			OnSwap: func(hash string) {
				if report := status.Get(); report != nil {
					m.RecordValidation(report)
				}
			},
		})
		if err != nil {
			L.Error(ctx, err, "failed to create bundle watcher")
			os.Exit(1)
		}
		go watcher.Run(ctx)
	} else {
		loader, err := content.NewLoader(conf.ContentRoot,
			content.WithLogger(L),
			content.WithMetrics(m),
		)
		if err != nil {
			L.Error(ctx, err, "failed to create content loader")
			os.Exit(1)
		}
		source = contenthttp.FixedSource{L: loader}
		m.SetContentSource("local")

		// startup validation pass; failures are reported through readiness
		// and metrics rather than aborting startup
		report, err := content.ValidateAll(ctx, loader, registry)
		if err != nil {
			L.Error(ctx, err, "startup content validation interrupted")
			os.Exit(1)
		}
		status.Set(report)
		m.RecordValidation(report)
		L.Info(ctx, "startup content validation complete",
			"passed", report.Passed(),
			"failed", report.Failed(),
		)

		if conf.EnableContentWatch {
			watcher, err := content.NewWatcher(content.WatcherOptions{
				Loader:   loader,
				Registry: registry,
				Status:   status,
				Logger:   L,
				Metrics:  m,
				OnPass: func(r *content.Report) {
					m.RecordValidation(r)
				},
			})
			if err != nil {
				L.Error(ctx, err, "failed to create content watcher")
				os.Exit(1)
			}
			go watcher.Run(ctx)
		}
	}

	// content API handlers
	api := contenthttp.NewAPI(source, registry, status, L)

	// setup toggle for server shutdown
	var gate health.ShutdownGate

	// readiness requires the shutdown gate open and a passing validation pass
	readiness := health.All(
		gate.Probe(),
		health.CheckFunc(func(ctx context.Context) error {
			return status.ReadyErr()
		}),
	)

	// Setup rate limiter middleware
	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first denial per visitor per TTL window
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
	)

	// start public content API server
	apiHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		PanicCounter: m,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		ContentInfo:  status,
		APIRoutes:    api.RegisterRoutes,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start http listener")
		os.Exit(1)
	}
	defer func() { _ = apiHTTPStop(context.Background()) }()

	// start admin/ops listener for metrics, health checks, content status, pprof
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:          conf.AdminPort,
		Metrics:       m.Handler(),
		EnablePprof:   conf.EnablePprof,
		Health:        health.Fixed(true, ""),
		Readiness:     readiness,
		ContentStatus: api.StatusHandler(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// block until ctrl+c / sigterm
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness to drain connections before closing listeners
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining")

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(15 * time.Second):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	if err := apiHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
	os.Exit(0)
}

// installCurrentBundle fetches and validates the bundle SSM currently points
// at, and installs it when every registered document passes.
func installCurrentBundle(
	ctx context.Context,
	L log.Logger,
	fetcher *bundle.Fetcher,
	manager *bundle.Manager,
	registry *content.Registry,
	status *content.Status,
	m *metrics.ServerMetrics,
) error {
	hash, err := fetcher.CurrentHash(ctx)
	if err != nil {
		return err
	}
	dir, err := fetcher.Fetch(ctx, hash)
	if err != nil {
		return err
	}
	loader, err := content.NewLoader(dir,
		content.WithLogger(L),
		content.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	report, err := content.ValidateAll(ctx, loader, registry)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("bundle %s failing validation for %d file(s)", hash, report.Failed())
	}

	manager.Set(loader, hash)
	status.Set(report)
	m.RecordValidation(report)
	m.SetBundle(hash)
	L.Info(ctx, "installed content bundle",
		"hash", hash,
		"files", len(report.Results),
	)
	return nil
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when we were started with Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
