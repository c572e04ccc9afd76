package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sambabib/depdoctor/pkg/analyzer"
	"github.com/sambabib/depdoctor/pkg/logger"
)

// Version is set during build using ldflags
var Version = "dev"

// Exit codes
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitInvalid  = 2
	ExitFailOn   = 3
)

var (
	verbose    bool
	quiet      bool
	configPath string
)

// errFailOn is returned when findings match --fail-on.
var errFailOn = errors.New("findings matched --fail-on")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depdoctor",
	Short: "Checks project dependencies for updates and deprecations",
	Long: `depdoctor scans a repository for dependency manifests (pip, npm, Maven,
NuGet and Go modules), looks up the latest release of every package in its
registry and reports outdated, deprecated and unresolved dependencies.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
		logger.SetQuiet(quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: nearest .depdoctor.yaml)")
}

// Execute runs the root command and exits with a status reflecting the outcome.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFailOn) {
			logger.Errorf("%v", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errFailOn):
		return ExitFailOn
	case errors.Is(err, analyzer.ErrInvalidInput):
		return ExitInvalid
	default:
		return ExitInternal
	}
}
