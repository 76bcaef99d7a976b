// Package commands implements the scout-query command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/statscout/internal/adapters/similarity"
	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/config"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/render"
	"github.com/okian/statscout/pkg/logger"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitFailed     = 1
	ExitBadRequest = 2
)

// errSubmission marks a failure that was already rendered to stdout.
var errSubmission = errors.New("submission failed")

// globalOptions are shared by every subcommand.
type globalOptions struct {
	apiBase  string
	policy   string
	timeout  time.Duration
	logLevel string
}

type options struct {
	*globalOptions
	mode  string
	stats map[string]*string
}

// flagName turns a form field name into its flag name.
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	opts := &options{globalOptions: global, stats: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:   "scout-query [--passing-yards-pg N ...] [--k N]",
		Short: "scout-query submits one stat line to the similarity API and prints the matches.",
		Long: "scout-query reads the same fields as the web form. Unset stats are left out\n" +
			"(or sent as 0 with --policy coerce); k defaults to 5.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	for _, field := range append(append([]string(nil), query.OffenseFields...), query.FieldK) {
		opts.stats[field] = flags.String(flagName(field), "", "value of the "+field+" field")
	}
	flags.StringVar(&opts.mode, "mode", string(query.ModeOffense), "stat set: offense or defense")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&global.apiBase, "api-base", "", "similarity API root (default from STATSCOUT_API_BASE_URL or the deployed backend)")
	persistent.StringVar(&global.policy, "policy", "", "blank field policy: omit or coerce (default from config)")
	persistent.DurationVar(&global.timeout, "timeout", 0, "request timeout, 0 for none (default from config)")
	persistent.StringVar(&global.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(newBatchCmd(global), newGenCmd())
	return cmd
}

// setup loads config, applies the global flags and builds the client.
func setup(cmd *cobra.Command, g *globalOptions) (*config.Config, *similarity.Client, logger.Logger, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return nil, nil, nil, err
	}
	if err := logger.SetLevelString(g.logLevel); err != nil {
		return nil, nil, nil, err
	}

	if g.apiBase != "" {
		cfg.APIBaseURL = g.apiBase
	}
	if g.policy != "" {
		cfg.CoercionPolicy = g.policy
	}
	if cmd.Flags().Changed("timeout") {
		cfg.RequestTimeoutMS = int(g.timeout / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log := logger.Named("scout-query")
	client := similarity.New(cfg.APIBaseURL,
		similarity.WithTimeout(cfg.RequestTimeout()),
		similarity.WithLogger(log),
		similarity.WithUserAgent(cfg.UserAgent),
	)
	return cfg, client, log, nil
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, client, log, err := setup(cmd, opts.globalOptions)
	if err != nil {
		return err
	}
	mode, err := query.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	form := url.Values{}
	for field, v := range opts.stats {
		if cmd.Flags().Changed(flagName(field)) {
			form.Set(field, *v)
		}
	}

	out := app.OutputFunc(func(text string) {
		if text == render.Loading {
			fmt.Fprintln(stderr, text)
			return
		}
		fmt.Fprintln(stdout, text)
	})
	handle := app.Mount(client, form, out,
		app.WithPolicy(cfg.Policy()),
		app.WithMode(mode),
		app.WithLogger(log),
	)
	if err := handle.Submit(ctx); err != nil {
		return fmt.Errorf("%w: %w", errSubmission, err)
	}
	return nil
}

// Execute runs the command with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errSubmission):
		return ExitFailed
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return ExitBadRequest
	}
}
