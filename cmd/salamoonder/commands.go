package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"digital.vasic.salamoonder/pkg/env"
	"digital.vasic.salamoonder/pkg/task"
	"digital.vasic.salamoonder/pkg/workflow"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration with secrets masked",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoRuntime: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := a.resolveConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			shown.APIKey = env.RedactAPIKey(cfg.APIKey)
			shown.BaseURL = env.RedactURL(cfg.BaseURL)
			shown.IntegrityURL = env.RedactURL(cfg.IntegrityURL)
			out, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			w := cmd.OutOrStdout()
			if _, err := w.Write(out); err != nil {
				return err
			}
			for _, f := range loader.Files() {
				fmt.Fprintf(w, "# env file: %s\n", f)
			}
			for _, st := range loader.Settings() {
				fmt.Fprintf(w, "# %s=%s\n", st.Name, st.Value)
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(w, "# invalid: %v\n", err)
			}
			return nil
		},
	}
}

func (a *app) balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.rt.client.GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
}

// parseTarget accepts a known target name or a script URL.
func parseTarget(s string) (task.Target, string, error) {
	if t, ok := task.LookupTarget(strings.ToLower(s)); ok {
		return t, "", nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return task.TargetCustom, s, nil
	}
	return "", "", fmt.Errorf("unknown target %q: use twitch, nike, kick, canadagoose or a script URL", s)
}

func (a *app) solveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "solve TARGET",
		Short: "Solve a challenge (twitch, nike, kick, canadagoose or a p.js URL)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, custom, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			sol, err := a.rt.client.SolveKasada(cmd.Context(), target, custom)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sol)
		},
	}
}

func (a *app) scrapeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a random Twitch profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.rt.client.ScrapeTwitchProfile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func (a *app) checkIntegrityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-integrity TOKEN",
		Short: "Decode the claims of an integrity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := a.rt.client.CheckTwitchIntegrity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), claims)
		},
	}
}

func (a *app) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register EMAIL",
		Short: "Register a Twitch account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.rt.client.RegisterTwitchAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acct)
		},
	}
}

// runBatch runs fn count times with at most parallel in flight and
// prints every credential as a JSON array in run order. The first
// failure cancels the remaining runs.
func runBatch(
	ctx context.Context, w io.Writer, count, parallel int,
	fn func(context.Context) (*workflow.IntegrityCredential, error),
) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	if count == 1 {
		cred, err := fn(ctx)
		if err != nil {
			return err
		}
		return printJSON(w, cred)
	}

	creds := make([]*workflow.IntegrityCredential, count)
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range count {
		g.Go(func() error {
			cred, err := fn(ctx)
			if err != nil {
				return fmt.Errorf("run %d: %w", i+1, err)
			}
			creds[i] = cred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printJSON(w, creds)
}

type batchFlags struct {
	count    int
	parallel int
}

func (b *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&b.count, "count", 1, "number of credentials to produce")
	cmd.Flags().IntVar(&b.parallel, "parallel", 4, "runs in flight when --count > 1")
}

func (a *app) integrityCommand() *cobra.Command {
	var (
		batch  batchFlags
		opts   workflow.IntegrityOptions
		target string
	)
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Solve the challenge locally and exchange it for an integrity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, custom, err := parseTarget(target)
			if err != nil {
				return err
			}
			opts.Target, opts.CustomTarget = t, custom
			return runBatch(cmd.Context(), cmd.OutOrStdout(), batch.count, batch.parallel,
				func(ctx context.Context) (*workflow.IntegrityCredential, error) {
					return a.rt.orchestrator.GenerateIntegrity(ctx, opts)
				})
		},
	}
	cmd.Flags().StringVar(&target, "target", "twitch", "challenge target name or script URL")
	cmd.Flags().StringVar(&opts.OAuth, "oauth", "", "account OAuth token")
	cmd.Flags().StringVar(&opts.ClientID, "twitch-client-id", "", "client id for this run")
	cmd.Flags().StringVar(&opts.DeviceID, "device-id", "", "device id (generated when empty)")
	cmd.Flags().StringVar(&opts.Proxy, "proxy", "", "proxy as user:pass@host:port")
	batch.register(cmd)
	return cmd
}

type variantFunc func(context.Context, workflow.VariantOptions) (*workflow.IntegrityCredential, error)

func (a *app) variantCommand(
	use, short string, pick func(*workflow.Orchestrator) variantFunc,
) *cobra.Command {
	var (
		batch batchFlags
		opts  workflow.VariantOptions
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := pick(a.rt.orchestrator)
			return runBatch(cmd.Context(), cmd.OutOrStdout(), batch.count, batch.parallel,
				func(ctx context.Context) (*workflow.IntegrityCredential, error) {
					return run(ctx, opts)
				})
		},
	}
	cmd.Flags().StringVar(&opts.AccessToken, "access-token", "", "account OAuth token")
	cmd.Flags().StringVar(&opts.ClientID, "twitch-client-id", "", "client id for this run")
	cmd.Flags().StringVar(&opts.DeviceID, "device-id", "", "device id (generated when empty)")
	cmd.Flags().StringVar(&opts.Proxy, "proxy", "", "proxy as user:pass@host:port")
	batch.register(cmd)
	return cmd
}
