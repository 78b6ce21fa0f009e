package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"digital.vasic.salamoonder/pkg/client"
	"digital.vasic.salamoonder/pkg/config"
	"digital.vasic.salamoonder/pkg/env"
	"digital.vasic.salamoonder/pkg/httpclient"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/metrics"
	"digital.vasic.salamoonder/pkg/telemetry"
	"digital.vasic.salamoonder/pkg/workflow"
)

const version = "0.1.0"

// Flag and viper keys.
const (
	keyConfig       = "config"
	keyEnvFile      = "env-file"
	keyAPIKey       = "api-key"
	keyBaseURL      = "base-url"
	keyIntegrityURL = "integrity-url"
	keyClientID     = "client-id"
	keyMaxRetries   = "max-retries"
	keyPollInterval = "poll-interval"
	keyTimeout      = "timeout"
	keyVerbose      = "verbose"
	keyOTLPEndpoint = "otlp-endpoint"
	keyMetrics      = "metrics"
)

// runtime is what every subcommand works with.
type runtime struct {
	cfg          *config.Config
	logger       logging.Logger
	client       *client.Client
	orchestrator *workflow.Orchestrator
	registry     *prometheus.Registry
	shutdown     []func(context.Context) error
}

func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	for i := len(rt.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, rt.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}

type app struct {
	v    *viper.Viper
	root *cobra.Command
	rt   *runtime
}

// execute runs the command line and then releases the runtime. The
// metrics dump and shutdown happen on failure too: cobra skips
// post-run hooks when RunE errors.
func (a *app) execute(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	return errors.Join(err, a.finish(context.WithoutCancel(ctx)))
}

func (a *app) finish(ctx context.Context) error {
	rt := a.rt
	if rt == nil {
		return nil
	}
	a.rt = nil
	if a.v.GetBool(keyMetrics) {
		writeMetrics(a.root.ErrOrStderr(), rt.registry)
	}
	return rt.close(ctx)
}

func newApp() *app {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "salamoonder",
		Short:         "Solve challenges and produce integrity tokens through the task API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsRuntime(cmd) {
				return nil
			}
			rt, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			a.rt = rt
			return nil
		},
	}

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "YAML config file")
	pf.String(keyEnvFile, ".env", "dotenv file with SALAMOONDER_* variables (ignored when missing)")
	pf.String(keyAPIKey, "", "API key (default $SALAMOONDER_API_KEY)")
	pf.String(keyBaseURL, defaults.BaseURL, "task API base URL")
	pf.String(keyIntegrityURL, defaults.IntegrityURL, "integrity endpoint base URL")
	pf.String(keyClientID, defaults.ClientID, "default client id")
	pf.Int(keyMaxRetries, defaults.MaxRetries, "pending polls allowed per task")
	pf.Duration(keyPollInterval, defaults.PollInterval, "delay between polls")
	pf.Duration(keyTimeout, defaults.Timeout, "per-request HTTP timeout")
	pf.BoolP(keyVerbose, "v", false, "log API traffic")
	pf.String(keyOTLPEndpoint, "", "export traces to this OTLP/HTTP collector")
	pf.Bool(keyMetrics, false, "print task metrics to stderr on exit")
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		a.configCommand(),
		a.balanceCommand(),
		a.solveCommand(),
		a.scrapeCommand(),
		a.checkIntegrityCommand(),
		a.registerCommand(),
		a.integrityCommand(),
		a.variantCommand("local-integrity", "Have the service produce an anonymous integrity token",
			func(o *workflow.Orchestrator) variantFunc { return o.LocalIntegrity }),
		a.variantCommand("public-integrity", "Have the service produce an account-bound integrity token",
			func(o *workflow.Orchestrator) variantFunc { return o.PublicIntegrity }),
		a.variantCommand("passport-integrity", "Have the service produce a passport integrity token",
			func(o *workflow.Orchestrator) variantFunc { return o.PassportIntegrity }),
	)
	a.root = root
	return a
}

// annotationNoRuntime marks commands that run without a client.
const annotationNoRuntime = "salamoonder/no-runtime"

// needsRuntime is false for cobra's own help and completion
// commands and for commands annotated with annotationNoRuntime.
func needsRuntime(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNoRuntime]; ok {
			return false
		}
		switch c.Name() {
		case "help", "completion":
			return false
		}
	}
	return true
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, _, err := a.resolveConfig()
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// resolveConfig merges defaults, the config file, the environment
// and explicitly set flags, in increasing precedence. It does not
// validate the result.
func (a *app) resolveConfig() (*config.Config, *env.FileLoader, error) {
	cfg := config.Default()
	if path := a.v.GetString(keyConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	loader := env.NewLoader()
	if path := a.v.GetString(keyEnvFile); path != "" {
		if err := loader.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}
	if err := cfg.ApplyEnv(loader); err != nil {
		return nil, nil, err
	}

	// The file and environment result becomes viper's default layer;
	// viper puts a changed flag above it.
	layered := map[string]any{
		keyAPIKey:       cfg.APIKey,
		keyBaseURL:      cfg.BaseURL,
		keyIntegrityURL: cfg.IntegrityURL,
		keyClientID:     cfg.ClientID,
		keyMaxRetries:   cfg.MaxRetries,
		keyPollInterval: cfg.PollInterval,
		keyTimeout:      cfg.Timeout,
		keyVerbose:      cfg.Verbose,
	}
	for k, v := range layered {
		a.v.SetDefault(k, v)
	}
	cfg.APIKey = a.v.GetString(keyAPIKey)
	cfg.BaseURL = a.v.GetString(keyBaseURL)
	cfg.IntegrityURL = a.v.GetString(keyIntegrityURL)
	cfg.ClientID = a.v.GetString(keyClientID)
	cfg.MaxRetries = a.v.GetInt(keyMaxRetries)
	cfg.PollInterval = a.v.GetDuration(keyPollInterval)
	cfg.Timeout = a.v.GetDuration(keyTimeout)
	cfg.Verbose = a.v.GetBool(keyVerbose)
	return cfg, loader, nil
}

func (a *app) setup(ctx context.Context) (*runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	zl, err := logging.SetupLogging(cfg.Verbose)
	if err != nil {
		return nil, err
	}
	logger := logging.NewRedactingLogger(zl, cfg.APIKey)
	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		shutdown: []func(context.Context) error{func(context.Context) error { return logger.Close() }},
	}

	if ep := a.v.GetString(keyOTLPEndpoint); ep != "" {
		stop, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    "salamoonder",
			ServiceVersion: version,
			OTLPEndpoint:   ep,
		})
		if err != nil {
			_ = rt.close(ctx)
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		rt.shutdown = append(rt.shutdown, stop)
	}

	m, err := metrics.NewPrometheusMetrics(rt.registry)
	if err != nil {
		_ = rt.close(ctx)
		return nil, err
	}

	transport := httpclient.NewClient(
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithLogger(logger),
	)
	rt.client = client.New(cfg.APIKey,
		client.WithBaseURL(cfg.BaseURL),
		client.WithTransport(transport),
		client.WithMaxRetries(cfg.MaxRetries),
		client.WithPollInterval(cfg.PollInterval),
		client.WithLogger(logger),
		client.WithMetrics(m),
	)
	rt.orchestrator = workflow.FromClient(rt.client,
		workflow.WithIntegrityURL(cfg.IntegrityURL),
		workflow.WithClientID(cfg.ClientID),
	)
	return rt, nil
}

// writeMetrics prints every collected sample as "name{labels} value".
func writeMetrics(w io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(w, "gather metrics:", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
