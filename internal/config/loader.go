package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configName = "echolens"

// Load reads configuration from the given file, or from the standard
// search path (working directory, then $XDG_CONFIG_HOME/echolens) when the
// path is empty. Environment variables prefixed ECHOLENS_ override file
// values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ECHOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// No config file is fine; env vars and flags may be enough.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("brand.match_mode", "exact")
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("capture_raw", false)
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8601)
	v.SetDefault("server.log_level", "info")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "echolens.db"
	}
	return filepath.Join(home, ".echolens", "echolens.db")
}

// starterConfig is written by `echolens config init`.
type starterConfig struct {
	Brand     BrandConfig               `yaml:"brand"`
	Prompts   []string                  `yaml:"prompts"`
	Questions []string                  `yaml:"questions"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// WriteStarter writes a commented starter configuration to path. Refuses
// to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	starter := starterConfig{
		Brand: BrandConfig{
			Client:      "Your Brand",
			Competitors: []string{"Competitor A", "Competitor B"},
			MatchMode:   "exact",
		},
		Prompts:   []string{"What are the leading products in this market?"},
		Questions: []string{"Does the answer recommend a specific vendor?"},
		Providers: map[string]ProviderConfig{
			"openai":     {Enabled: true, Model: "gpt-4o"},
			"grok":       {Enabled: false, Model: "grok-3"},
			"gemini":     {Enabled: false, Model: "gemini-2.0-flash"},
			"perplexity": {Enabled: false, Model: "sonar-pro", AnalysisModel: "sonar"},
		},
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("encode starter config: %w", err)
	}

	header := "# EchoLens configuration. API keys come from the environment\n# (OPENAI_API_KEY, XAI_API_KEY, GEMINI_API_KEY, PERPLEXITY_API_KEY)\n# or from a credentials: block in this file.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0600)
}
