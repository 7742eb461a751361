package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/krux/aws-analysis-tools/internal/config"
	"github.com/krux/aws-analysis-tools/internal/version"
	"github.com/krux/aws-analysis-tools/pkg/aws"
	"github.com/krux/aws-analysis-tools/pkg/checker"
	"github.com/krux/aws-analysis-tools/pkg/listener"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath  string
		showVersion bool
	)
	v := config.New()

	rootCmd := &cobra.Command{
		Use:   "ec2-events",
		Short: "Report scheduled EC2 maintenance events",
		Long: `ec2-events scans every reachable AWS region for scheduled EC2
maintenance events and reports them to chat, Jira and NATS.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "ec2-events version %s\n", version.Get())
				return nil
			}

			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cmd, cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flags.StringVarP(&configPath, "config", "c", "", "Config file (yaml, json or toml)")

	flags.String("region", "us-east-1", "Region used to list all other regions")
	flags.StringSliceP("regions", "r", nil, "Only scan these regions (comma separated, default: all)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.BoolP("quiet", "q", false, "Do not print the events report")
	flags.Bool("fail-fast", false, "Abort on the first listener failure")

	flags.String("flowdock-token", "", "Flowdock flow API token")
	flags.String("flowdock-url", "https://api.flowdock.com", "Flowdock API base URL")
	flags.String("slack-webhook-url", "", "Slack incoming webhook URL")
	flags.Int("urgent-threshold-hours", 120, "Escalate events starting within this many hours")
	flags.String("display-name", "ec2-event-checker", "Name chat messages are posted under")

	flags.String("jira-username", "", "Jira username")
	flags.String("jira-password", "", "Jira password")
	flags.String("jira-base-url", "", "Jira base URL")
	flags.Int("jira-lookback-days", 30, "Only comment on issues created within this many days")
	flags.String("jira-issue-type", "Maintenance Task", "Jira issue type of maintenance tickets")

	flags.String("nats-url", "", "NATS server URL")
	flags.String("nats-subject-prefix", "ec2.events", "NATS subject prefix")

	flags.Uint("http-attempts", 3, "Attempts per chat or Jira request")

	if err := config.BindFlags(v, flags); err != nil {
		panic(err)
	}
	return rootCmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	source, err := aws.NewEventSource(ctx, cfg.Region, aws.WithLogger(logger))
	if err != nil {
		return err
	}

	pub, closeBus, err := openBus(ctx, logger, cfg.NATS, dialNATS)
	if err != nil {
		return err
	}
	defer closeBus()

	listeners, err := buildListeners(cfg, logger, cmd.OutOrStdout(), pub)
	if err != nil {
		return err
	}

	opts := []checker.Option{
		checker.WithLogger(logger),
		checker.WithFilters(checker.DefaultFilters().OnlyRegions(cfg.Regions)),
	}
	if cfg.FailFast {
		opts = append(opts, checker.WithFailFast())
	}
	c := checker.New(source, opts...)
	for _, l := range listeners {
		if err := c.AddListener(l); err != nil {
			return err
		}
	}

	// the spinner would interleave with debug logs
	var s *spinner.Spinner
	if !cfg.Debug && isatty.IsTerminal(os.Stderr.Fd()) {
		s = startSpinner()
	}
	started := time.Now()
	err = c.Check(ctx)
	if s != nil {
		s.Stop()
	}

	logger.Info("Check finished", "events", c.Events(), "listeners", len(listeners), "took", time.Since(started).Round(time.Millisecond))
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("check interrupted: %w", err)
	}
	return err
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// startSpinner creates and starts a spinner on stderr
func startSpinner() *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Checking regions for scheduled events ..."
	s.Start()
	return s
}

// busConn is a bus connection the process owns
type busConn interface {
	listener.Publisher
	Close()
}

type busDialer func(ctx context.Context, logger *slog.Logger, url string) (busConn, error)

func dialNATS(ctx context.Context, logger *slog.Logger, url string) (busConn, error) {
	nc, err := connectNATS(ctx, logger, url)
	if err != nil {
		return nil, err
	}
	return nc, nil
}

// openBus connects to the bus when one is configured. The returned close
// function is always safe to call. The bus listener flushes on completion,
// so closing synchronously loses nothing.
func openBus(ctx context.Context, logger *slog.Logger, cfg config.NATSConfig, dial busDialer) (listener.Publisher, func(), error) {
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}
	conn, err := dial(ctx, logger, cfg.URL)
	if err != nil {
		return nil, func() {}, err
	}
	return conn, conn.Close, nil
}

func connectNATS(ctx context.Context, logger *slog.Logger, url string) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(url,
				nats.Name(checker.Name),
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					if err != nil {
						logger.Warn("nats disconnected", "err", err)
					}
				}),
			)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("connect to nats failed", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}
