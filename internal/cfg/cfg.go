package cfg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"learnstyle/internal/common"
)

type Settings struct {
	PredictURL    string // primary prediction endpoint, usually the relay
	ServiceURL    string // base URL of the introspection endpoints
	RelayPort     int
	RelayUpstream string
	LivePort      int
	RESTTimeout   time.Duration
	DataPath      string // journal directory, empty disables it
	OutputDir     string
	LogLevel      string
	LogFormat     string
}

type ConfigFile struct {
	Service struct {
		PredictURL  string `yaml:"predictURL"`
		BaseURL     string `yaml:"baseURL"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"service"`

	Relay struct {
		Port     int    `yaml:"port"`
		Upstream string `yaml:"upstream"`
	} `yaml:"relay"`

	Live struct {
		Port      int    `yaml:"port"`
		OutputDir string `yaml:"outputDir"`
	} `yaml:"live"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"system"`
}

// Load reads settings from the YAML file named by CONFIG_FILE when set, else
// from the environment. A .env file in the working directory is loaded first;
// variables already set in the process win over it.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Settings{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return LoadFile(configPath)
	}
	return loadFromEnv()
}

// LoadFile reads the YAML file at path. Environment variables override its values.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.Service.RESTTimeout)
	if err != nil {
		restTimeout, _ = time.ParseDuration(common.DefaultRESTTimeout)
	}

	settings := Settings{
		PredictURL:    getEnvOrDefault(common.EnvPredictURL, orDefault(config.Service.PredictURL, common.DefaultPredictURL)),
		ServiceURL:    getEnvOrDefault(common.EnvServiceURL, orDefault(config.Service.BaseURL, common.DefaultServiceURL)),
		RelayPort:     getIntFromEnvOrConfig(common.EnvRelayPort, config.Relay.Port, common.DefaultRelayPort),
		RelayUpstream: getEnvOrDefault(common.EnvRelayUpstream, orDefault(config.Relay.Upstream, common.DefaultRelayUpstream)),
		LivePort:      getIntFromEnvOrConfig(common.EnvLivePort, config.Live.Port, common.DefaultLivePort),
		RESTTimeout:   getDurationOrDefault(common.EnvRESTTimeout, restTimeout),
		DataPath:      getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		OutputDir:     getEnvOrDefault(common.EnvOutputDir, orDefault(config.Live.OutputDir, common.DefaultOutputDir)),
		LogLevel:      getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:     getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	defaultTimeout, _ := time.ParseDuration(common.DefaultRESTTimeout)

	settings := Settings{
		PredictURL:    getEnvOrDefault(common.EnvPredictURL, common.DefaultPredictURL),
		ServiceURL:    getEnvOrDefault(common.EnvServiceURL, common.DefaultServiceURL),
		RelayPort:     getIntOrDefault(common.EnvRelayPort, common.DefaultRelayPort),
		RelayUpstream: getEnvOrDefault(common.EnvRelayUpstream, common.DefaultRelayUpstream),
		LivePort:      getIntOrDefault(common.EnvLivePort, common.DefaultLivePort),
		RESTTimeout:   getDurationOrDefault(common.EnvRESTTimeout, defaultTimeout),
		DataPath:      os.Getenv(common.EnvDataPath), // optional
		OutputDir:     getEnvOrDefault(common.EnvOutputDir, common.DefaultOutputDir),
		LogLevel:      getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:     getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// JournalEnabled reports whether predictions should be recorded.
func (s *Settings) JournalEnabled() bool {
	return s.DataPath != ""
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings checks every field and reports the first problem found.
func validateSettings(settings *Settings) error {
	if err := validateURL("predict URL", settings.PredictURL); err != nil {
		return err
	}
	if err := validateURL("service URL", settings.ServiceURL); err != nil {
		return err
	}
	if err := validateURL("relay upstream", settings.RelayUpstream); err != nil {
		return err
	}

	if settings.RelayPort < common.MinPort || settings.RelayPort > common.MaxPort {
		return fmt.Errorf("relay port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.RelayPort)
	}
	if settings.LivePort < common.MinPort || settings.LivePort > common.MaxPort {
		return fmt.Errorf("live port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.LivePort)
	}
	if settings.LivePort == settings.RelayPort {
		return fmt.Errorf("live port and relay port must differ, both are %d", settings.LivePort)
	}

	minTimeout, _ := time.ParseDuration(common.MinRESTTimeout)
	maxTimeout, _ := time.ParseDuration(common.MaxRESTTimeout)
	if settings.RESTTimeout < minTimeout || settings.RESTTimeout > maxTimeout {
		return fmt.Errorf("REST timeout must be between %v and %v, got %v", minTimeout, maxTimeout, settings.RESTTimeout)
	}

	if settings.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel)); err != nil || settings.LogLevel == "" {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	switch settings.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}
