// Package config loads reporter settings from a YAML file, the environment and defaults.
package config

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/fetch"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/report"
)

const (
	DefaultPath = "config.yaml"
	EnvPrefix   = "RHOAI_REPORTER"
)

type Config struct {
	Repositories Repositories `mapstructure:"repositories"`
	Defaults     Defaults     `mapstructure:"defaults"`
	GitHub       GitHub       `mapstructure:"github"`
}

type Repositories struct {
	BuildConfig        string `mapstructure:"build_config"`
	DisconnectedHelper string `mapstructure:"disconnected_helper"`
}

type Defaults struct {
	OutputFormat            string `mapstructure:"output_format"`
	IncludeSecurityAnalysis bool   `mapstructure:"include_security_analysis"`
}

type GitHub struct {
	Token             string `mapstructure:"token"`
	APIURL            string `mapstructure:"api_url"`
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repositories.build_config", fetch.DefaultBuildConfigRepo)
	v.SetDefault("repositories.disconnected_helper", fetch.DefaultHelperRepo)
	v.SetDefault("defaults.output_format", report.FormatMarkdown)
	v.SetDefault("defaults.include_security_analysis", true)
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "")
	v.SetDefault("github.requests_per_second", fetch.DefaultRequestsPerSecond)
}

// Load reads the config file at path, if any, and overlays RHOAI_REPORTER_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "binding github token environment")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, errors.Wrapf(err, "reading config %s", path)
			}
			log.Warnf("config file %s not found, using defaults", path)
		} else {
			log.Debugf("loaded config from %s", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Defaults.OutputFormat {
	case report.FormatMarkdown, report.FormatJSON:
	default:
		return fmt.Errorf("defaults.output_format must be %s or %s, got %q", report.FormatMarkdown, report.FormatJSON, c.Defaults.OutputFormat)
	}
	if c.GitHub.RequestsPerSecond <= 0 {
		return fmt.Errorf("github.requests_per_second must be positive, got %d", c.GitHub.RequestsPerSecond)
	}
	for key, repo := range map[string]string{
		"repositories.build_config":        c.Repositories.BuildConfig,
		"repositories.disconnected_helper": c.Repositories.DisconnectedHelper,
	} {
		if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
			return fmt.Errorf("%s must be in owner/name form, got %q", key, repo)
		}
	}
	return nil
}

// ClientOptions translates the GitHub settings into fetch client options.
func (c *Config) ClientOptions() []fetch.Option {
	opts := []fetch.Option{
		fetch.WithRepositories(c.Repositories.BuildConfig, c.Repositories.DisconnectedHelper),
		fetch.WithRateLimit(c.GitHub.RequestsPerSecond),
	}
	if c.GitHub.Token != "" {
		opts = append(opts, fetch.WithToken(c.GitHub.Token))
	}
	if c.GitHub.APIURL != "" {
		opts = append(opts, fetch.WithBaseURL(c.GitHub.APIURL))
	}
	return opts
}
