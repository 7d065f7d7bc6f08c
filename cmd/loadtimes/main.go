package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/loadtimes/internal/agent"
	"github.com/ethpandaops/loadtimes/internal/config"
	"github.com/ethpandaops/loadtimes/internal/times"
	"github.com/ethpandaops/loadtimes/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	inputFile string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadtimes",
		Short: "Latency bucketing for load test answer times",
		Long: `loadtimes reads measured answer times, one per line, classifies
them into configured latency buckets and prints the per-bucket counts
when the input ends. Counts are exported periodically to ClickHouse or
an HTTP collector while the run is in progress.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"path to config file (required by run and check)",
	)
	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)
	cmd.Flags().StringVar(
		&inputFile, "input", "-",
		"file to read intervals from, - for stdin",
	)

	cmd.AddCommand(checkCmd(), syntaxCmd(), versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullWithPlatform())
		},
	}
}

func syntaxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syntax",
		Short: "Print the grammar of histogram.steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), agent.NewSteps().Syntax())

			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and print the resulting buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return printBuckets(cmd.OutOrStdout(), cfg)
		},
	}
}

// printBuckets writes the configured steps in the block grammar followed by
// the bucket labels they produce.
func printBuckets(w io.Writer, cfg *agent.Config) error {
	gen, err := cfg.Histogram.Generator()
	if err != nil {
		return err
	}

	steps, err := times.NewSteps(gen)
	if err != nil {
		return err
	}

	out := config.NewOutput(w)

	if cfg.Histogram.Simple == nil {
		out.WriteString("steps {").Lf()
		cfg.Histogram.Steps.Print(out, 1)
		out.WriteString("}").Lf()
	}

	out.WriteString("buckets {").Lf()

	tags := times.NewTags(steps)
	for i := 0; i < tags.Len(); i++ {
		out.Indent(1).WriteString(fmt.Sprintf("%d : ", i))
		config.String.Print(out, 1, tags.Label(i))
		out.Lf()
	}

	out.WriteString("}").Lf()

	return out.Flush()
}

func loadConfig() (*agent.Config, error) {
	if cfgFile == "" {
		return nil, errors.New(`required flag "config" not set`)
	}

	cfg, err := agent.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

func openInput() (io.ReadCloser, error) {
	if inputFile == "" || inputFile == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}

	return f, nil
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI flag overrides config file.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	input, err := openInput()
	if err != nil {
		return err
	}
	defer input.Close()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	a, err := agent.New(log, cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	log.Info("Starting loadtimes")

	if err := a.Start(ctx); err != nil {
		_ = a.Stop()

		return fmt.Errorf("starting agent: %w", err)
	}

	feedErr := a.Feed(ctx, input)
	if errors.Is(feedErr, context.Canceled) {
		log.Info("Interrupted, flushing counts")

		feedErr = nil
	}

	if err := a.Stop(); err != nil {
		log.WithError(err).Error("Error during shutdown")

		return fmt.Errorf("stopping agent: %w", err)
	}

	if feedErr != nil {
		return feedErr
	}

	log.Info("Shutdown complete")

	return nil
}
