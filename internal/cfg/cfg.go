package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/commonshub/commonshub-web/internal/log"
)

type App struct {
	LogJSON         bool
	LogLevel        string
	StacktraceLevel string

	HTTPPort  int
	AdminPort int

	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64

	ContentRoot        string
	EnableContentWatch bool

	EnableBundleSync   bool
	BundleSSMParam     string
	BundleS3Bucket     string
	BundleS3Prefix     string
	BundleCacheDir     string
	BundlePollInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.ContentRoot, "content-root", "content", "directory of JSON content documents")
	fs.BoolVar(&c.EnableContentWatch, "enable-content-watch", false, "Re-validate the content root on file changes (local dev)")
	fs.BoolVar(&c.EnableBundleSync, "enable-bundle-sync", false, "Enable refreshing content bundles from S3/SSM")
	fs.StringVar(&c.BundleSSMParam, "bundle-ssm-param", "/app/commonshub-web/content/stable/release/id", "ssm parameter name to get content bundle hash from")
	fs.StringVar(&c.BundleS3Bucket, "bundle-s3-bucket", "", "s3 bucket name to get content bundle from")
	fs.StringVar(&c.BundleS3Prefix, "bundle-s3-prefix", "apps/commonshub-web/content/bundles", "s3 prefix (key) to get content bundle from")
	fs.StringVar(&c.BundleCacheDir, "bundle-cache-dir", "/var/cache/commonshub-web/content", "directory for extracted content bundles")
	fs.DurationVar(&c.BundlePollInterval, "bundle-poll-interval", time.Minute, "interval between SSM polls for a new bundle")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "per-client request rate limit (0 disables)")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "per-client request burst")
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
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Content
	if c.ContentRoot == "" {
		errs = append(errs, fmt.Errorf("CONTENT_ROOT is required"))
	}
	if c.EnableContentWatch && c.EnableBundleSync {
		errs = append(errs, fmt.Errorf("ENABLE_CONTENT_WATCH and ENABLE_BUNDLE_SYNC are mutually exclusive"))
	}

	if c.EnableBundleSync {
		if c.BundleSSMParam == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_SSM_PARAM is required when ENABLE_BUNDLE_SYNC=true"))
		}
		if c.BundleS3Bucket == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_S3_BUCKET is required when ENABLE_BUNDLE_SYNC=true"))
		}
		if c.BundleS3Prefix == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_S3_PREFIX is required when ENABLE_BUNDLE_SYNC=true"))
		}
		if c.BundleCacheDir == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_CACHE_DIR is required when ENABLE_BUNDLE_SYNC=true"))
		}
		if c.BundlePollInterval < time.Second {
			errs = append(errs, fmt.Errorf("BUNDLE_POLL_INTERVAL must be at least 1s (got %s)", c.BundlePollInterval))
		}
	}

	// Rate limiting
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be >= 0 (got %g)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 when rate limiting is on (got %d)", c.RateLimitBurst))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
