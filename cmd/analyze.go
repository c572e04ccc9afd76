package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sambabib/depdoctor/pkg/analyzer"
	"github.com/sambabib/depdoctor/pkg/config"
	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/output"
	"github.com/sambabib/depdoctor/pkg/registry"
	"github.com/sambabib/depdoctor/pkg/scanner"
)

var (
	analyzePath string
	format      string
	outputFile  string
	timeout     time.Duration
	workers     int
	failOn      []string
	noCache     bool
)

// analyzeCmd represents the analyze subcommand
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze project dependencies",
	Long:  "Analyze the project's dependencies and report outdated or deprecated packages.",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzePath, "path", "p", ".", "Path to project directory to analyze")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "", "Output format: "+strings.Join(output.Formats, ", "))
	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 0, "Bound on registry lookups, e.g. 2m (0 means none)")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent registry lookups")
	analyzeCmd.Flags().StringSliceVar(&failOn, "fail-on", nil, "Exit non-zero when findings are outdated, deprecated or unresolved")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the in-memory registry cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fail, err := parseFailOn(failOn)
	if err != nil {
		return fmt.Errorf("%w: %v", analyzer.ErrInvalidInput, err)
	}

	client := registry.NewClient(
		registry.WithRateLimit(cfg.Resolver.RateLimit),
		registry.WithUserAgent(fmt.Sprintf("depdoctor/%s (+https://github.com/sambabib/depdoctor)", Version)),
	)
	var lookup registry.Lookup = registry.NewDefaultRouter(client, registry.URLs{
		Npm:     cfg.Registries.Npm,
		PyPI:    cfg.Registries.PyPI,
		Maven:   cfg.Registries.Maven,
		NuGet:   cfg.Registries.NuGet,
		GoProxy: cfg.Registries.GoProxy,
	})
	var cached *registry.Cached
	if !noCache {
		cached = registry.NewCached(lookup, cfg.Resolver.CacheSize, cfg.Resolver.CacheTTL)
		lookup = cached
	}

	a := analyzer.New(lookup,
		analyzer.WithScanOptions(scanner.Options{Exclude: cfg.Exclude, Ignore: cfg.IsPackageIgnored}),
		analyzer.WithWorkers(cfg.Resolver.Workers),
		analyzer.WithRetry(cfg.Resolver.MaxAttempts, cfg.Resolver.BaseDelay, cfg.Resolver.MaxDelay),
		analyzer.WithTimeout(cfg.Resolver.Timeout),
		analyzer.WithSeverity(cfg.GetSeverityForUpdate),
	)

	rep, err := a.Analyze(cmd.Context(), analyzePath)
	if err != nil {
		return err
	}
	if cached != nil {
		logger.Debugf("Registry cache holds %d entries", cached.Len())
	}

	if err := writeReport(cmd.OutOrStdout(), cfg, rep); err != nil {
		return err
	}

	for _, f := range rep.Findings {
		if fail[f.Classification] {
			logger.Infof("Found %s dependencies, failing as requested by --fail-on", f.Classification)
			return errFailOn
		}
	}
	return nil
}

// loadConfig merges the config file, .env, DEPDOCTOR_* variables and flags,
// in increasing precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadDotEnv(".env", filepath.Join(analyzePath, ".env"))

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.FindAndLoadConfig(analyzePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analyzer.ErrInvalidInput, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("%w: %v", analyzer.ErrInvalidInput, err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("output") {
		cfg.Output.File = outputFile
	}
	if flags.Changed("timeout") {
		cfg.Resolver.Timeout = timeout
	}
	if flags.Changed("workers") {
		cfg.Resolver.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %v", analyzer.ErrInvalidInput, err)
	}
	logger.Debugf("Config: format=%s workers=%d timeout=%s rateLimit=%g",
		cfg.Output.Format, cfg.Resolver.Workers, cfg.Resolver.Timeout, cfg.Resolver.RateLimit)
	return cfg, nil
}

func writeReport(stdout io.Writer, cfg *config.Config, rep *model.Report) error {
	w := stdout
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := output.Write(w, cfg.Output.Format, rep, Version); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.Output.File != "" {
		logger.Infof("Report written to %s", cfg.Output.File)
	}
	return nil
}

func parseFailOn(values []string) (map[model.Classification]bool, error) {
	fail := map[model.Classification]bool{}
	for _, v := range values {
		switch c := model.Classification(strings.ToLower(strings.TrimSpace(v))); c {
		case model.Outdated, model.Deprecated, model.Unresolved:
			fail[c] = true
		case "":
		default:
			return nil, fmt.Errorf("--fail-on: unknown classification %q", v)
		}
	}
	return fail, nil
}
