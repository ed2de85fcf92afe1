package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/goccy/go-yaml"
	"github.com/mumoshu/prsync/build"
	"github.com/mumoshu/prsync/config"
	"github.com/mumoshu/prsync/promote"
	"github.com/mumoshu/prsync/treediff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func Main() error {
	var rootCmd = &cobra.Command{
		Use:     "prsync",
		Version: build.Version(),
	}
	rootCmd.AddCommand(NewCmdPromote())
	rootCmd.AddCommand(NewCmdDiff())
	ctx := newSignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return err
	}
	return nil
}

func newSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		cancel()
	}()

	return ctx
}

func runE(fn func(context.Context) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd.Context()); err != nil {
			logrus.Error(err)
			return err
		}

		return nil
	}
}

func setLogLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unable to parse log level: %w", err)
	}

	logrus.SetLevel(l)

	return nil
}

func NewCmdPromote() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote the source tree into the target tree",
		Long:  "compares the source tree against the target tree, copies the differing files outside the excluded subtrees, and proposes the result for review.",
		RunE: runE(func(ctx context.Context) error {
			if err := setLogLevel(logLevel); err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			s := &promote.Synchronizer{
				Config: cfg,
				DryRun: dryRun,
			}

			_, err = s.Run(ctx)

			return err
		}),
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "The path to the configuration file.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and log the differences without writing, committing, or proposing anything.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "The log level to use. Valid values are \"debug\", \"info\", \"warn\", \"error\", and \"fatal\".")

	return cmd
}

func NewCmdDiff() *cobra.Command {
	var (
		configPath string
		format     string
		exitCode   bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the differences between the source and target trees",
		Long:  "compares the source tree against the target tree in the working directory and prints the differing paths. It never writes.",
		RunE: runE(func(ctx context.Context) error {
			if err := setLogLevel(logLevel); err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}

			set, err := treediff.Compare(osfs.New(wd), cfg.Source, cfg.Target, treediff.Options{
				Exclude: cfg.Exclude,
			})
			if err != nil {
				return err
			}

			switch format {
			case "text":
				fmt.Print(set)
			case "yaml":
				out, err := yaml.Marshal(set)
				if err != nil {
					return fmt.Errorf("unable to marshal yaml: %w", err)
				}
				fmt.Print(string(out))
			default:
				return fmt.Errorf("unknown format %q: must be \"text\" or \"yaml\"", format)
			}

			if exitCode && !set.Empty() {
				return fmt.Errorf("found %d differences between %s and %s", set.Len(), cfg.Source, cfg.Target)
			}

			return nil
		}),
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "The path to the configuration file.")
	cmd.Flags().StringVar(&format, "format", "text", "The output format. Valid values are \"text\" and \"yaml\".")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit non-zero when the trees differ, for gating CI steps on drift.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "The log level to use. Valid values are \"debug\", \"info\", \"warn\", \"error\", and \"fatal\".")

	return cmd
}
