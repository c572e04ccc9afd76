package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
)

// FileName is the config file looked up in the project directory and its parents.
const FileName = ".depdoctor.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DEPDOCTOR_"

// Config represents the configuration for depdoctor
type Config struct {
	// Exclude patterns for files or directories
	Exclude []string `yaml:"exclude"`

	// Custom registries for different package managers
	Registries struct {
		Npm     string `yaml:"npm"`
		NuGet   string `yaml:"nuget"`
		Maven   string `yaml:"maven"`
		PyPI    string `yaml:"pypi"`
		GoProxy string `yaml:"goproxy"`
	} `yaml:"registries"`

	// Severity thresholds for reporting
	Severity struct {
		Major string `yaml:"major"` // Default: error
		Minor string `yaml:"minor"` // Default: warning
		Patch string `yaml:"patch"` // Default: info
	} `yaml:"severity"`

	// Output configuration
	Output struct {
		Format string `yaml:"format"` // text, json, sarif, markdown
		File   string `yaml:"file"`   // Output file path (stdout if empty)
	} `yaml:"output"`

	// Ignore specific packages
	IgnorePackages []string `yaml:"ignorePackages"`

	// Registry lookup tuning
	Resolver struct {
		Workers     int           `yaml:"workers"`
		MaxAttempts int           `yaml:"maxAttempts"`
		BaseDelay   time.Duration `yaml:"baseDelay"`
		MaxDelay    time.Duration `yaml:"maxDelay"`
		RateLimit   float64       `yaml:"rateLimit"` // requests per second, 0 disables
		Timeout     time.Duration `yaml:"timeout"`   // whole resolve stage, 0 means none
		CacheSize   int           `yaml:"cacheSize"`
		CacheTTL    time.Duration `yaml:"cacheTTL"`
	} `yaml:"resolver"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		Exclude: []string{},
	}

	// Set default severity levels
	config.Severity.Major = "error"
	config.Severity.Minor = "warning"
	config.Severity.Patch = "info"

	// Set default output format
	config.Output.Format = "text"

	config.Resolver.Workers = 8
	config.Resolver.MaxAttempts = 3
	config.Resolver.BaseDelay = 500 * time.Millisecond
	config.Resolver.MaxDelay = 10 * time.Second
	config.Resolver.RateLimit = 10
	config.Resolver.CacheSize = 4096
	config.Resolver.CacheTTL = 10 * time.Minute

	return config
}

// LoadConfig loads the configuration from the specified file path
// If no path is provided, it looks for .depdoctor.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = FileName
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", configPath)
		}
		return config, nil
	}

	if err := readInto(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	config := DefaultConfig()

	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		currentDir = projectPath
	}
	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			if err := readInto(configPath, config); err != nil {
				return nil, err
			}
			return config, nil
		}

		// Move up to the parent directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	// No config file found, return default config
	return config, nil
}

func readInto(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped, unreadable or malformed ones are logged and skipped, and
// variables already set are left untouched.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warnf("Config: ignoring env file %s: %v", p, err)
		}
	}
}

// ApplyEnv overrides config values from DEPDOCTOR_* variables read through
// lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("NPM_REGISTRY", &c.Registries.Npm)
	str("PYPI_REGISTRY", &c.Registries.PyPI)
	str("MAVEN_REGISTRY", &c.Registries.Maven)
	str("NUGET_REGISTRY", &c.Registries.NuGet)
	str("GOPROXY", &c.Registries.GoProxy)
	str("FORMAT", &c.Output.Format)
	str("OUTPUT", &c.Output.File)
	integer("WORKERS", &c.Resolver.Workers)
	integer("MAX_ATTEMPTS", &c.Resolver.MaxAttempts)
	integer("CACHE_SIZE", &c.Resolver.CacheSize)
	duration("TIMEOUT", &c.Resolver.Timeout)
	duration("BASE_DELAY", &c.Resolver.BaseDelay)
	duration("MAX_DELAY", &c.Resolver.MaxDelay)
	duration("CACHE_TTL", &c.Resolver.CacheTTL)

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err))
		} else {
			c.Resolver.RateLimit = f
		}
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Output.Format) {
	case "", "text", "json", "sarif", "markdown", "md":
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}
	for name, sev := range map[string]string{"major": c.Severity.Major, "minor": c.Severity.Minor, "patch": c.Severity.Patch} {
		switch sev {
		case "error", "warning", "info", "ok":
		default:
			errs = append(errs, fmt.Errorf("severity.%s: unknown level %q", name, sev))
		}
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("exclude: bad pattern %q: %w", pattern, err))
		}
	}

	r := c.Resolver
	if r.Workers < 1 {
		errs = append(errs, fmt.Errorf("resolver.workers must be at least 1, got %d", r.Workers))
	}
	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("resolver.maxAttempts must be at least 1, got %d", r.MaxAttempts))
	}
	if r.BaseDelay < 0 || r.MaxDelay < 0 || r.Timeout < 0 || r.CacheTTL < 0 {
		errs = append(errs, errors.New("resolver: durations must not be negative"))
	}
	if r.MaxDelay > 0 && r.MaxDelay < r.BaseDelay {
		errs = append(errs, fmt.Errorf("resolver.maxDelay (%s) is below baseDelay (%s)", r.MaxDelay, r.BaseDelay))
	}
	if r.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("resolver.rateLimit must not be negative, got %g", r.RateLimit))
	}
	return errors.Join(errs...)
}

// IsPackageIgnored checks if a package should be ignored based on the configuration
func (c *Config) IsPackageIgnored(eco model.Ecosystem, packageName string) bool {
	name := model.NormalizeName(eco, packageName)
	for _, ignoredPackage := range c.IgnorePackages {
		if model.NormalizeName(eco, ignoredPackage) == name {
			return true
		}
	}
	return false
}

// GetSeverityForUpdate returns the configured severity level for the given update type
func (c *Config) GetSeverityForUpdate(updateType string) string {
	switch updateType {
	case "major":
		return c.Severity.Major
	case "minor":
		return c.Severity.Minor
	case "patch":
		return c.Severity.Patch
	default:
		return "info"
	}
}
