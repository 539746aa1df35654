package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML overlay. Set fields override the env-loaded values;
// zero fields are ignored. Values may reference environment variables with
// ${VAR} or $VAR syntax.
type FileConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	Provider struct {
		Token   string `yaml:"token"`
		URL     string `yaml:"url"`
		Limit   int    `yaml:"limit"`
		Timeout string `yaml:"timeout"`
	} `yaml:"provider"`

	Server struct {
		ListenAddr     string `yaml:"listen_addr"`
		CORSOrigins    string `yaml:"cors_origins"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Diagnostic struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"diagnostic"`
}

// applyFile reads the YAML overlay at path and merges set fields into c.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return c.applyFileBytes(raw, path)
}

func (c *Config) applyFileBytes(raw []byte, path string) error {
	expanded := expandEnvVars(string(raw))

	var fc FileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.Environment != "" {
		c.Environment = fc.Environment
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.Provider.Token != "" {
		c.APIToken = fc.Provider.Token
	}
	if fc.Provider.URL != "" {
		c.APIURL = fc.Provider.URL
	}
	if fc.Provider.Limit > 0 {
		c.APILimit = fc.Provider.Limit
	}
	if fc.Provider.Timeout != "" {
		d, err := time.ParseDuration(fc.Provider.Timeout)
		if err != nil {
			return fmt.Errorf("config: invalid provider timeout %q: %w", fc.Provider.Timeout, err)
		}
		c.ProviderTimeout = d
	}
	if fc.Server.ListenAddr != "" {
		c.ListenAddr = fc.Server.ListenAddr
	}
	if fc.Server.CORSOrigins != "" {
		c.CORSOrigins = fc.Server.CORSOrigins
	}
	if fc.Server.RateLimitRPS > 0 {
		c.RateLimitRPS = fc.Server.RateLimitRPS
	}
	if fc.Server.RateLimitBurst > 0 {
		c.RateLimitBurst = fc.Server.RateLimitBurst
	}
	if fc.Diagnostic.APIKey != "" {
		c.DiagAPIKey = fc.Diagnostic.APIKey
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR} and $VAR with the corresponding environment
// variable value. Missing vars are replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
